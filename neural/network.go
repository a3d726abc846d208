// Package neural provides small feedforward networks whose topology evolves:
// hidden nodes are inserted by splitting edges and new forward edges are
// added over time, while the graph stays acyclic.
package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

var (
	// ErrCycle is returned when a network description contains a cycle.
	ErrCycle = errors.New("neural: network contains a cycle")
	// ErrTopologyMismatch is returned when networks that must share a
	// topology do not.
	ErrTopologyMismatch = errors.New("neural: topology mismatch")
	// ErrParameterCount is returned by SetParameters for a vector of the
	// wrong length.
	ErrParameterCount = errors.New("neural: parameter count mismatch")
)

// Activation is a node transfer function.
type Activation uint8

const (
	Linear Activation = iota
	Sigmoid
	ReLU
)

var activationNames = [...]string{
	Linear:  "linear",
	Sigmoid: "sigmoid",
	ReLU:    "relu",
}

func (a Activation) String() string {
	if int(a) < len(activationNames) {
		return activationNames[a]
	}
	return fmt.Sprintf("activation(%d)", a)
}

// ParseActivation converts a name such as "sigmoid" to an Activation.
func ParseActivation(s string) (Activation, error) {
	for i, name := range activationNames {
		if strings.EqualFold(s, name) {
			return Activation(i), nil
		}
	}
	return 0, fmt.Errorf("neural: unknown activation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Activation) MarshalText() ([]byte, error) {
	if int(a) >= len(activationNames) {
		return nil, fmt.Errorf("neural: unknown activation %d", a)
	}
	return []byte(activationNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Activation) UnmarshalText(text []byte) error {
	v, err := ParseActivation(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Activation) apply(x float32) float32 {
	switch a {
	case Sigmoid:
		// Symmetric sigmoid in (-1, 1)
		return 2/(1+float32(math.Exp(float64(-x)))) - 1
	case ReLU:
		if x < 0 {
			return 0
		}
		return x
	default:
		return x
	}
}

// Node is a network vertex. Input nodes ignore their bias and activation.
type Node struct {
	Bias       float32
	Activation Activation
}

// Edge is a weighted connection From → To.
type Edge struct {
	From   int
	To     int
	Weight float32
}

// State reports whether a network's execution order is current.
type State uint8

const (
	Unbuilt State = iota
	Built
)

func (s State) String() string {
	if s == Built {
		return "built"
	}
	return "unbuilt"
}

// Network is a directed acyclic graph of nodes. Node ids [0, inputs) are
// inputs, [inputs, inputs+outputs) are outputs and the rest are hidden.
// Edges never point into an input and never leave an output.
//
// Every exported mutator leaves the network Built. Run on an Unbuilt
// network panics.
type Network struct {
	inputs  int
	outputs int
	nodes   []Node
	edges   []Edge

	order    []int   // topological execution order
	incoming [][]int // edge indices grouped by target node
	state    State
}

// New creates a network with no edges, zero biases and linear outputs.
func New(inputs, outputs int) *Network {
	if inputs < 1 || outputs < 1 {
		panic(fmt.Sprintf("neural: invalid dimensions %d×%d", inputs, outputs))
	}
	n := &Network{
		inputs:  inputs,
		outputs: outputs,
		nodes:   make([]Node, inputs+outputs),
	}
	n.Build()
	return n
}

// NewDense creates a network with every input wired to every output,
// weights drawn uniformly from [-1, 1).
func NewDense(inputs, outputs int, rng *rand.Rand) *Network {
	n := New(inputs, outputs)
	n.edges = make([]Edge, 0, inputs*outputs)
	for in := 0; in < inputs; in++ {
		for out := inputs; out < inputs+outputs; out++ {
			n.edges = append(n.edges, Edge{From: in, To: out, Weight: sampleWeight(rng)})
		}
	}
	n.Build()
	return n
}

func sampleWeight(rng *rand.Rand) float32 {
	return rng.Float32()*2 - 1
}

// Inputs returns the number of input nodes.
func (n *Network) Inputs() int { return n.inputs }

// Outputs returns the number of output nodes.
func (n *Network) Outputs() int { return n.outputs }

// Nodes returns the node list. The slice aliases internal storage.
func (n *Network) Nodes() []Node { return n.nodes }

// Edges returns the edge list. The slice aliases internal storage.
func (n *Network) Edges() []Edge { return n.edges }

// Order returns the execution order. Only meaningful when Built.
func (n *Network) Order() []int { return n.order }

// State returns whether the execution order is current.
func (n *Network) State() State { return n.state }

// Hidden returns the number of hidden nodes.
func (n *Network) Hidden() int { return len(n.nodes) - n.inputs - n.outputs }

func (n *Network) isInput(id int) bool  { return id < n.inputs }
func (n *Network) isOutput(id int) bool { return id >= n.inputs && id < n.inputs+n.outputs }

// Build recomputes the execution order. A cycle is a broken invariant and
// panics.
func (n *Network) Build() {
	order, ok := topoOrder(len(n.nodes), n.edges, n.order[:0])
	if !ok {
		panic(ErrCycle)
	}
	n.order = order

	if cap(n.incoming) < len(n.nodes) {
		n.incoming = make([][]int, len(n.nodes))
	}
	n.incoming = n.incoming[:len(n.nodes)]
	for i := range n.incoming {
		n.incoming[i] = n.incoming[i][:0]
	}
	for ei, e := range n.edges {
		n.incoming[e.To] = append(n.incoming[e.To], ei)
	}

	n.state = Built
}

// topoOrder orders nodes in rounds: each round takes, in ascending id
// order, every unplaced node whose sources were all placed in earlier
// rounds. ok is false when a round makes no progress.
func topoOrder(count int, edges []Edge, dst []int) (order []int, ok bool) {
	pending := make([]int, count)
	for _, e := range edges {
		pending[e.To]++
	}
	placed := make([]bool, count)
	order = dst

	ready := make([]int, 0, count)
	for len(order) < count {
		ready = ready[:0]
		for id := 0; id < count; id++ {
			if !placed[id] && pending[id] == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			return order, false
		}
		for _, id := range ready {
			placed[id] = true
			order = append(order, id)
		}
		for _, e := range edges {
			if placed[e.From] && containsSorted(ready, e.From) {
				pending[e.To]--
			}
		}
	}
	return order, true
}

func containsSorted(ids []int, id int) bool {
	lo, hi := 0, len(ids)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case ids[mid] == id:
			return true
		case ids[mid] < id:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}

// Run evaluates the network and returns a fresh output slice.
func (n *Network) Run(inputs []float32) []float32 {
	values := make([]float32, len(n.nodes))
	out := n.RunInto(values, inputs)
	result := make([]float32, len(out))
	copy(result, out)
	return result
}

// ValuesLen returns the scratch length RunInto needs.
func (n *Network) ValuesLen() int { return len(n.nodes) }

// RunInto evaluates the network using values as node scratch (at least
// ValuesLen long) and returns the output slice, which aliases values.
func (n *Network) RunInto(values, inputs []float32) []float32 {
	if n.state != Built {
		panic("neural: Run on unbuilt network")
	}
	if len(inputs) != n.inputs {
		panic(fmt.Sprintf("neural: got %d inputs, want %d", len(inputs), n.inputs))
	}

	values = values[:len(n.nodes)]
	copy(values, inputs)
	for i := n.inputs; i < len(values); i++ {
		values[i] = 0
	}

	for _, id := range n.order {
		if n.isInput(id) {
			continue
		}
		node := n.nodes[id]
		sum := node.Bias
		for _, ei := range n.incoming[id] {
			e := n.edges[ei]
			sum += e.Weight * values[e.From]
		}
		values[id] = node.Activation.apply(sum)
	}

	return values[n.inputs : n.inputs+n.outputs]
}

// Clone returns a deep copy.
func (n *Network) Clone() *Network {
	c := &Network{
		inputs:  n.inputs,
		outputs: n.outputs,
		nodes:   append([]Node(nil), n.nodes...),
		edges:   append([]Edge(nil), n.edges...),
	}
	c.Build()
	return c
}

// SameTopology reports whether both networks have the same dimensions,
// node count and edge endpoints in the same order.
func (n *Network) SameTopology(o *Network) bool {
	if n.inputs != o.inputs || n.outputs != o.outputs ||
		len(n.nodes) != len(o.nodes) || len(n.edges) != len(o.edges) {
		return false
	}
	for i := range n.edges {
		if n.edges[i].From != o.edges[i].From || n.edges[i].To != o.edges[i].To {
			return false
		}
	}
	return true
}

// Equal reports whether both networks have the same topology and
// parameters.
func (n *Network) Equal(o *Network) bool {
	if !n.SameTopology(o) {
		return false
	}
	for i := range n.nodes {
		if n.nodes[i] != o.nodes[i] {
			return false
		}
	}
	for i := range n.edges {
		if n.edges[i].Weight != o.edges[i].Weight {
			return false
		}
	}
	return true
}

// NumParameters returns len(Parameters()).
func (n *Network) NumParameters() int { return len(n.nodes) + len(n.edges) }

// Parameters returns the flat parameter vector: every node bias followed by
// every edge weight.
func (n *Network) Parameters() []float32 {
	p := make([]float32, 0, n.NumParameters())
	for _, node := range n.nodes {
		p = append(p, node.Bias)
	}
	for _, e := range n.edges {
		p = append(p, e.Weight)
	}
	return p
}

// SetParameters overwrites biases and weights from a vector laid out as in
// Parameters.
func (n *Network) SetParameters(p []float32) error {
	if len(p) != n.NumParameters() {
		return fmt.Errorf("%w: got %d, want %d", ErrParameterCount, len(p), n.NumParameters())
	}
	for i := range n.nodes {
		n.nodes[i].Bias = p[i]
	}
	off := len(n.nodes)
	for i := range n.edges {
		n.edges[i].Weight = p[off+i]
	}
	n.Build()
	return nil
}
