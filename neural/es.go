package neural

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Sibling is a perturbed copy of a base network and the reward it earned.
type Sibling struct {
	Network *Network
	Reward  float64
}

// GradientAscent moves base along the reward-weighted mean of its
// siblings' parameter offsets. Rewards are normalized to zero mean and unit
// sample standard deviation; a degenerate deviation counts as 1, so equal
// rewards leave base unchanged. Every sibling must share base's topology.
func GradientAscent(base *Network, siblings []Sibling, learningRate float64) error {
	if len(siblings) == 0 {
		return nil
	}

	rewards := make([]float64, len(siblings))
	for i, s := range siblings {
		if !base.SameTopology(s.Network) {
			return fmt.Errorf("%w: sibling %d", ErrTopologyMismatch, i)
		}
		rewards[i] = s.Reward
	}

	mean, std := stat.MeanStdDev(rewards, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}

	baseParams := toFloat64(base.Parameters())
	grad := make([]float64, len(baseParams))
	diff := make([]float64, len(baseParams))
	for i, s := range siblings {
		norm := (rewards[i] - mean) / std
		floats.SubTo(diff, toFloat64(s.Network.Parameters()), baseParams)
		floats.AddScaled(grad, norm, diff)
	}
	floats.Scale(1/float64(len(siblings)), grad)
	floats.AddScaled(baseParams, learningRate, grad)

	return base.SetParameters(toFloat32(baseParams))
}

func toFloat64(p []float32) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = float64(v)
	}
	return out
}

func toFloat32(p []float64) []float32 {
	out := make([]float32, len(p))
	for i, v := range p {
		out[i] = float32(v)
	}
	return out
}
