package neural

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func perturbedSiblings(base *Network, rng *rand.Rand, rewards []float64) []Sibling {
	sibs := make([]Sibling, len(rewards))
	for i, r := range rewards {
		c := base.Clone()
		c.MutateWeights(rng, 1, 0.1)
		sibs[i] = Sibling{Network: c, Reward: r}
	}
	return sibs
}

func TestGradientAscentEqualRewardsNoChange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := NewDense(3, 2, rng)
	before := base.Clone()

	sibs := perturbedSiblings(base, rng, []float64{4, 4, 4, 4})
	if err := GradientAscent(base, sibs, 0.5); err != nil {
		t.Fatal(err)
	}

	if !base.Equal(before) {
		t.Error("equal rewards moved the base network")
	}
}

func TestGradientAscentSingleSibling(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := NewDense(2, 1, rng)
	before := base.Clone()

	// One sample: deviation is NaN and the normalized reward is zero
	sibs := perturbedSiblings(base, rng, []float64{10})
	if err := GradientAscent(base, sibs, 1); err != nil {
		t.Fatal(err)
	}
	if !base.Equal(before) {
		t.Error("single sibling moved the base network")
	}
}

func TestGradientAscentMovesTowardBetterSibling(t *testing.T) {
	base := New(1, 1)
	base.edges = []Edge{{From: 0, To: 1, Weight: 0}}
	base.Build()

	good := base.Clone()
	good.edges[0].Weight = 1
	bad := base.Clone()
	bad.edges[0].Weight = -1

	sibs := []Sibling{
		{Network: good, Reward: 10},
		{Network: bad, Reward: 0},
	}
	if err := GradientAscent(base, sibs, 0.5); err != nil {
		t.Fatal(err)
	}

	// Normalized rewards are ±1/√2, so Δ = mean(1·(1/√2), -1·(-1/√2)) = 1/√2
	want := 0.5 / math.Sqrt2
	if got := float64(base.Edges()[0].Weight); math.Abs(got-want) > 1e-6 {
		t.Errorf("weight = %v, want %v", got, want)
	}
	if base.State() != Built {
		t.Error("base left unbuilt")
	}
}

func TestGradientAscentTopologyMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	base := NewDense(2, 2, rng)
	other := base.Clone()
	other.SplitEdge(rng, Linear)

	err := GradientAscent(base, []Sibling{{Network: other, Reward: 1}}, 0.1)
	if !errors.Is(err, ErrTopologyMismatch) {
		t.Errorf("err = %v, want ErrTopologyMismatch", err)
	}
}

func TestGradientAscentNoSiblings(t *testing.T) {
	base := New(1, 1)
	if err := GradientAscent(base, nil, 1); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}
