package main

import (
	"math"

	"github.com/pthm-cable/anthill/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters for a
// strategy. The es strategy ignores structural mutation and elitism.
func NewParamVector(strategy string) *ParamVector {
	if strategy == "es" {
		return &ParamVector{
			Specs: []ParamSpec{
				{Name: "learning_rate", Path: "trainer.learning_rate", Min: 0.05, Max: 2.0, Default: 0.5},
				{Name: "sigma", Path: "trainer.sigma", Min: 0.01, Max: 0.5, Default: 0.1},
			},
		}
	}
	return &ParamVector{
		Specs: []ParamSpec{
			// Weight mutation
			{Name: "mutation_rate", Path: "mutation.rate", Min: 0.01, Max: 0.5, Default: 0.1},
			{Name: "mutation_range", Path: "mutation.range", Min: 0.05, Max: 2.0, Default: 0.5},
			// Structural mutation
			{Name: "max_structural", Path: "mutation.max_structural", Min: 0, Max: 6, Default: 3},
			{Name: "split_probability", Path: "mutation.split_probability", Min: 0, Max: 1, Default: 0.5},
			// Selection
			{Name: "elite_fraction", Path: "trainer.elite_fraction", Min: 0.05, Max: 0.6, Default: 0.2},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Max(spec.Min, math.Min(spec.Max, v[i]))
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct by path.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	for i, spec := range pv.Specs {
		v := clamped[i]
		switch spec.Path {
		case "mutation.rate":
			cfg.Mutation.Rate = v
		case "mutation.range":
			cfg.Mutation.Range = v
		case "mutation.max_structural":
			cfg.Mutation.MaxStructural = int(math.Round(v))
		case "mutation.split_probability":
			cfg.Mutation.SplitProbability = v
		case "trainer.elite_fraction":
			cfg.Trainer.EliteFraction = v
		case "trainer.learning_rate":
			cfg.Trainer.LearningRate = v
		case "trainer.sigma":
			cfg.Trainer.Sigma = v
		}
	}
}
