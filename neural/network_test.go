package neural

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestNewNetworkRunsZero(t *testing.T) {
	n := New(1, 1)
	if n.State() != Built {
		t.Fatalf("State = %v, want built", n.State())
	}

	out := n.Run([]float32{5})
	if len(out) != 1 || out[0] != 0 {
		t.Errorf("Run([5]) = %v, want [0]", out)
	}
}

func TestRunOutputLength(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tests := []struct {
		inputs, outputs int
	}{
		{1, 1},
		{15, 4},
		{3, 7},
	}

	for _, tt := range tests {
		n := NewDense(tt.inputs, tt.outputs, rng)
		for i := 0; i < 20; i++ {
			n.MutateStructure(rng, MutationPolicy{SplitProbability: 0.5, Activations: []Activation{Linear, Sigmoid, ReLU}})
		}
		out := n.Run(make([]float32, tt.inputs))
		if len(out) != tt.outputs {
			t.Errorf("%d×%d: len(out) = %d", tt.inputs, tt.outputs, len(out))
		}
	}
}

func TestActivations(t *testing.T) {
	tests := []struct {
		act  Activation
		in   float32
		want float32
	}{
		{Linear, -2.5, -2.5},
		{ReLU, -2.5, 0},
		{ReLU, 3, 3},
		{Sigmoid, 0, 0},
		{Sigmoid, 100, 1},
		{Sigmoid, -100, -1},
	}

	for _, tt := range tests {
		if got := tt.act.apply(tt.in); math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("%v(%v) = %v, want %v", tt.act, tt.in, got, tt.want)
		}
	}
}

func TestRunHandWired(t *testing.T) {
	// in0 ─2─▶ hidden(relu, bias -1) ─3─▶ out
	// in1 ─0.5────────────────────────────▶ out (bias 0.25)
	n := New(2, 1)
	n.nodes[2].Bias = 0.25
	n.nodes = append(n.nodes, Node{Bias: -1, Activation: ReLU})
	n.edges = []Edge{
		{From: 0, To: 3, Weight: 2},
		{From: 3, To: 2, Weight: 3},
		{From: 1, To: 2, Weight: 0.5},
	}
	n.Build()

	tests := []struct {
		in   []float32
		want float32
	}{
		{[]float32{1, 2}, 0.25 + 3*1 + 1},
		{[]float32{0, 2}, 0.25 + 0 + 1}, // relu clips
	}
	for _, tt := range tests {
		if got := n.Run(tt.in)[0]; math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("Run(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := NewDense(5, 3, rng)
	for i := 0; i < 10; i++ {
		n.MutateStructure(rng, MutationPolicy{SplitProbability: 0.7, Activations: []Activation{Sigmoid}})
	}

	in := []float32{0.1, -0.2, 0.3, 1, -1}
	a := n.Run(in)
	b := n.Run(in)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("output %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}

	values := make([]float32, n.ValuesLen())
	c := n.RunInto(values, in)
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("RunInto output %d = %v, Run = %v", i, c[i], a[i])
		}
	}
}

func TestRunPanics(t *testing.T) {
	t.Run("unbuilt", func(t *testing.T) {
		n := New(2, 1)
		n.state = Unbuilt
		defer func() {
			if recover() == nil {
				t.Error("Run on unbuilt network did not panic")
			}
		}()
		n.Run([]float32{1, 2})
	})

	t.Run("add edge unbuilt", func(t *testing.T) {
		n := New(2, 1)
		n.state = Unbuilt
		defer func() {
			if recover() == nil {
				t.Error("AddEdge on unbuilt network did not panic")
			}
		}()
		n.AddEdge(rand.New(rand.NewSource(1)))
	})

	t.Run("input length", func(t *testing.T) {
		n := New(2, 1)
		defer func() {
			if recover() == nil {
				t.Error("Run with wrong input length did not panic")
			}
		}()
		n.Run([]float32{1})
	})
}

func TestBuildPanicsOnCycle(t *testing.T) {
	n := New(1, 1)
	n.nodes = append(n.nodes, Node{}, Node{})
	n.edges = []Edge{
		{From: 2, To: 3, Weight: 1},
		{From: 3, To: 2, Weight: 1},
	}
	defer func() {
		if recover() == nil {
			t.Error("Build on a cyclic graph did not panic")
		}
	}()
	n.Build()
}

// checkInvariants verifies the execution order and the input/output
// firewall.
func checkInvariants(t *testing.T, n *Network) {
	t.Helper()

	if n.State() != Built {
		t.Fatalf("network left %v", n.State())
	}
	if len(n.Order()) != len(n.Nodes()) {
		t.Fatalf("order has %d nodes, network has %d", len(n.Order()), len(n.Nodes()))
	}

	pos := make([]int, len(n.Nodes()))
	for i, id := range n.Order() {
		pos[id] = i
	}

	seen := make(map[[2]int]bool)
	for _, e := range n.Edges() {
		if pos[e.From] >= pos[e.To] {
			t.Errorf("edge %d→%d goes backwards in execution order", e.From, e.To)
		}
		if n.isInput(e.To) {
			t.Errorf("edge %d→%d enters an input", e.From, e.To)
		}
		if n.isOutput(e.From) {
			t.Errorf("edge %d→%d leaves an output", e.From, e.To)
		}
		key := [2]int{e.From, e.To}
		if seen[key] {
			t.Errorf("duplicate edge %d→%d", e.From, e.To)
		}
		seen[key] = true
	}
}

func TestRandomMutationsKeepInvariants(t *testing.T) {
	policy := MutationPolicy{
		SplitProbability: 0.5,
		Activations:      []Activation{Linear, Sigmoid, ReLU},
	}

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		var n *Network
		if seed%2 == 0 {
			n = NewDense(4, 2, rng)
		} else {
			n = New(4, 2)
		}

		for i := 0; i < 60; i++ {
			n.MutateStructure(rng, policy)
			n.MutateWeights(rng, 0.3, 0.5)
			checkInvariants(t, n)
		}
	}
}

func TestSplitEdge(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := New(1, 1)
	if n.SplitEdge(rng, Sigmoid) {
		t.Fatal("SplitEdge on an edgeless network reported a change")
	}

	n.edges = []Edge{{From: 0, To: 1, Weight: 0.75}}
	n.Build()

	if !n.SplitEdge(rng, Sigmoid) {
		t.Fatal("SplitEdge reported no change")
	}
	if n.Hidden() != 1 {
		t.Fatalf("Hidden = %d, want 1", n.Hidden())
	}
	if got := n.Nodes()[2].Activation; got != Sigmoid {
		t.Errorf("hidden activation = %v, want sigmoid", got)
	}
	first := n.Edges()[0]
	if first != (Edge{From: 0, To: 2, Weight: 0.75}) {
		t.Errorf("split edge = %+v, want 0→2 keeping weight 0.75", first)
	}
	second := n.Edges()[1]
	if second.From != 2 || second.To != 1 {
		t.Errorf("new edge = %+v, want 2→1", second)
	}
	checkInvariants(t, n)
}

func TestAddEdgeRejectsExisting(t *testing.T) {
	// A fully connected 1×1 network has a single legal edge, already present
	rng := rand.New(rand.NewSource(3))
	n := NewDense(1, 1, rng)
	for i := 0; i < 50; i++ {
		if n.AddEdge(rng) {
			t.Fatal("AddEdge added a duplicate or illegal edge")
		}
	}
	if n.State() != Built {
		t.Error("rejected AddEdge left the network unbuilt")
	}
}

func TestMutateWeightsLeavesInputBiases(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := NewDense(3, 2, rng)
	before := n.Clone()

	n.MutateWeights(rng, 1, 0.5)

	for id := 0; id < n.Inputs(); id++ {
		if n.Nodes()[id].Bias != 0 {
			t.Errorf("input %d bias mutated to %v", id, n.Nodes()[id].Bias)
		}
	}
	if n.Equal(before) {
		t.Error("MutateWeights with p=1 changed nothing")
	}
	if !n.SameTopology(before) {
		t.Error("MutateWeights changed topology")
	}
	for i, e := range n.Edges() {
		if d := math.Abs(float64(e.Weight - before.Edges()[i].Weight)); d > 0.5 {
			t.Errorf("edge %d moved by %v, want ≤ 0.5", i, d)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	n := NewDense(2, 2, rng)
	c := n.Clone()

	if !n.Equal(c) {
		t.Fatal("clone not equal to original")
	}
	c.MutateWeights(rng, 1, 1)
	c.SplitEdge(rng, ReLU)
	if n.Hidden() != 0 || len(n.Edges()) != 4 {
		t.Error("mutating the clone changed the original")
	}
}

func TestParametersRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := NewDense(3, 2, rng)
	n.SplitEdge(rng, Sigmoid)

	p := n.Parameters()
	if len(p) != n.NumParameters() {
		t.Fatalf("len(Parameters) = %d, want %d", len(p), n.NumParameters())
	}
	for i := range p {
		p[i] += 1
	}
	if err := n.SetParameters(p); err != nil {
		t.Fatal(err)
	}
	if got := n.Parameters(); got[len(got)-1] != p[len(p)-1] {
		t.Error("SetParameters did not apply")
	}

	if err := n.SetParameters(p[:1]); !errors.Is(err, ErrParameterCount) {
		t.Errorf("short vector: err = %v, want ErrParameterCount", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	n := NewDense(4, 3, rng)
	for i := 0; i < 15; i++ {
		n.MutateStructure(rng, MutationPolicy{SplitProbability: 0.6, Activations: []Activation{Sigmoid, ReLU}})
	}

	data, err := json.Marshal(n.ToRecord())
	if err != nil {
		t.Fatal(err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	loaded, err := FromRecord(rec)
	if err != nil {
		t.Fatal(err)
	}

	if !loaded.Equal(n) {
		t.Error("loaded network differs from original")
	}
	in := []float32{0.5, -0.5, 0.25, 1}
	a, b := n.Run(in), loaded.Run(in)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("output %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestFromRecordRejects(t *testing.T) {
	base := func() Record {
		return Record{
			Inputs:  1,
			Outputs: 1,
			Nodes:   []NodeRecord{{}, {}, {}},
			Edges:   []EdgeRecord{{From: 0, To: 2}, {From: 2, To: 1}},
		}
	}

	tests := []struct {
		name   string
		modify func(*Record)
	}{
		{"zero inputs", func(r *Record) { r.Inputs = 0 }},
		{"too few nodes", func(r *Record) { r.Nodes = r.Nodes[:1] }},
		{"edge out of range", func(r *Record) { r.Edges[0].To = 9 }},
		{"edge into input", func(r *Record) { r.Edges[0] = EdgeRecord{From: 2, To: 0} }},
		{"edge out of output", func(r *Record) { r.Edges[1] = EdgeRecord{From: 1, To: 2} }},
		{"duplicate edge", func(r *Record) { r.Edges = append(r.Edges, EdgeRecord{From: 0, To: 2}) }},
		{"cycle", func(r *Record) {
			r.Nodes = append(r.Nodes, NodeRecord{})
			r.Edges = append(r.Edges, EdgeRecord{From: 2, To: 3}, EdgeRecord{From: 3, To: 2})
		}},
	}

	if _, err := FromRecord(base()); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base()
			tt.modify(&rec)
			if _, err := FromRecord(rec); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("err = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestParseActivation(t *testing.T) {
	for _, name := range []string{"linear", "Sigmoid", "RELU"} {
		if _, err := ParseActivation(name); err != nil {
			t.Errorf("ParseActivation(%q): %v", name, err)
		}
	}
	if _, err := ParseActivation("tanh"); err == nil {
		t.Error("ParseActivation(tanh) succeeded")
	}
}

func BenchmarkRunInto(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	n := NewDense(15, 4, rng)
	for i := 0; i < 30; i++ {
		n.MutateStructure(rng, MutationPolicy{SplitProbability: 0.5, Activations: []Activation{Sigmoid, ReLU}})
	}
	values := make([]float32, n.ValuesLen())
	in := make([]float32, 15)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.RunInto(values, in)
	}
}
