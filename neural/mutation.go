package neural

import "math/rand"

// MutationPolicy controls structural mutation.
type MutationPolicy struct {
	SplitProbability float64      // chance of SplitEdge over AddEdge
	Activations      []Activation // candidates for new hidden nodes
}

// SplitEdge inserts a hidden node into a random edge from→to. The old edge
// is retargeted to from→hidden and keeps its weight; a new edge
// hidden→to gets a random weight. Returns false when there are no edges.
func (n *Network) SplitEdge(rng *rand.Rand, act Activation) bool {
	if len(n.edges) == 0 {
		n.Build()
		return false
	}

	ei := rng.Intn(len(n.edges))
	hidden := len(n.nodes)
	n.nodes = append(n.nodes, Node{Activation: act})

	to := n.edges[ei].To
	n.edges[ei].To = hidden
	n.edges = append(n.edges, Edge{From: hidden, To: to, Weight: sampleWeight(rng)})

	n.Build()
	return true
}

// AddEdge picks two execution-order positions i < j and connects
// order[i] → order[j]. The edge is rejected when it already exists, when
// it would enter an input or when it would leave an output. Returns
// whether an edge was added. Panics on an Unbuilt network.
func (n *Network) AddEdge(rng *rand.Rand) bool {
	if n.state != Built {
		panic("neural: AddEdge on unbuilt network")
	}
	count := len(n.order)
	if count < 2 {
		return false
	}

	i := rng.Intn(count)
	j := rng.Intn(count - 1)
	if j >= i {
		j++
	}
	if i > j {
		i, j = j, i
	}
	from, to := n.order[i], n.order[j]

	if n.isInput(to) || n.isOutput(from) || n.hasEdge(from, to) {
		return false
	}

	n.edges = append(n.edges, Edge{From: from, To: to, Weight: sampleWeight(rng)})
	n.Build()
	return true
}

func (n *Network) hasEdge(from, to int) bool {
	for _, e := range n.edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// MutateStructure applies one split-edge or add-edge mutation. Returns
// whether the topology changed.
func (n *Network) MutateStructure(rng *rand.Rand, policy MutationPolicy) bool {
	if rng.Float64() < policy.SplitProbability {
		act := Linear
		if len(policy.Activations) > 0 {
			act = policy.Activations[rng.Intn(len(policy.Activations))]
		}
		return n.SplitEdge(rng, act)
	}
	return n.AddEdge(rng)
}

// MutateWeights adds U(-r, r) to each non-input bias and each edge weight
// independently with probability p. Topology is untouched.
func (n *Network) MutateWeights(rng *rand.Rand, p, r float32) {
	for id := n.inputs; id < len(n.nodes); id++ {
		if rng.Float32() < p {
			n.nodes[id].Bias += (rng.Float32()*2 - 1) * r
		}
	}
	for i := range n.edges {
		if rng.Float32() < p {
			n.edges[i].Weight += (rng.Float32()*2 - 1) * r
		}
	}
}
