package neural

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord wraps every validation failure in FromRecord.
var ErrInvalidRecord = errors.New("neural: invalid record")

// Record is the persisted form of a network. The execution order is
// rebuilt on load and never stored.
type Record struct {
	Inputs  int          `json:"inputs"`
	Outputs int          `json:"outputs"`
	Nodes   []NodeRecord `json:"nodes"`
	Edges   []EdgeRecord `json:"edges"`
}

// NodeRecord is the persisted form of a Node.
type NodeRecord struct {
	Bias       float32    `json:"bias"`
	Activation Activation `json:"activation"`
}

// EdgeRecord is the persisted form of an Edge.
type EdgeRecord struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Weight float32 `json:"weight"`
}

// ToRecord snapshots the network.
func (n *Network) ToRecord() Record {
	rec := Record{
		Inputs:  n.inputs,
		Outputs: n.outputs,
		Nodes:   make([]NodeRecord, len(n.nodes)),
		Edges:   make([]EdgeRecord, len(n.edges)),
	}
	for i, node := range n.nodes {
		rec.Nodes[i] = NodeRecord{Bias: node.Bias, Activation: node.Activation}
	}
	for i, e := range n.edges {
		rec.Edges[i] = EdgeRecord{From: e.From, To: e.To, Weight: e.Weight}
	}
	return rec
}

// FromRecord validates rec and returns a Built network.
func FromRecord(rec Record) (*Network, error) {
	if rec.Inputs < 1 || rec.Outputs < 1 {
		return nil, fmt.Errorf("%w: dimensions %d×%d", ErrInvalidRecord, rec.Inputs, rec.Outputs)
	}
	if len(rec.Nodes) < rec.Inputs+rec.Outputs {
		return nil, fmt.Errorf("%w: %d nodes for %d inputs and %d outputs",
			ErrInvalidRecord, len(rec.Nodes), rec.Inputs, rec.Outputs)
	}

	n := &Network{
		inputs:  rec.Inputs,
		outputs: rec.Outputs,
		nodes:   make([]Node, len(rec.Nodes)),
		edges:   make([]Edge, len(rec.Edges)),
	}
	for i, nr := range rec.Nodes {
		if int(nr.Activation) >= len(activationNames) {
			return nil, fmt.Errorf("%w: node %d has unknown activation", ErrInvalidRecord, i)
		}
		n.nodes[i] = Node{Bias: nr.Bias, Activation: nr.Activation}
	}

	seen := make(map[[2]int]struct{}, len(rec.Edges))
	for i, er := range rec.Edges {
		if er.From < 0 || er.From >= len(n.nodes) || er.To < 0 || er.To >= len(n.nodes) {
			return nil, fmt.Errorf("%w: edge %d (%d→%d) out of range", ErrInvalidRecord, i, er.From, er.To)
		}
		if n.isInput(er.To) {
			return nil, fmt.Errorf("%w: edge %d enters input %d", ErrInvalidRecord, i, er.To)
		}
		if n.isOutput(er.From) {
			return nil, fmt.Errorf("%w: edge %d leaves output %d", ErrInvalidRecord, i, er.From)
		}
		key := [2]int{er.From, er.To}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate edge %d→%d", ErrInvalidRecord, er.From, er.To)
		}
		seen[key] = struct{}{}
		n.edges[i] = Edge{From: er.From, To: er.To, Weight: er.Weight}
	}

	if _, ok := topoOrder(len(n.nodes), n.edges, nil); !ok {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, ErrCycle)
	}

	n.Build()
	return n, nil
}
