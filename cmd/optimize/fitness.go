package main

import (
	"context"
	"math"
	"sync"

	"github.com/pthm-cable/anthill/config"
	"github.com/pthm-cable/anthill/trainer"
)

// FitnessEvaluator runs short training sessions and scores how well they
// learn.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	seeds       []int64
	baseConfig  *config.Config

	mu          sync.Mutex
	bestFitness float64
	bestSeed    int64   // seed of the best single run in the best evaluation
	lastMean    float64 // mean best score from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, generations int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestSeed returns the seed of the strongest run in the best evaluation.
// Training is deterministic per seed, so the run can be replayed.
func (fe *FitnessEvaluator) BestSeed() int64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestSeed
}

// LastMean returns the mean best score of the most recent evaluation.
func (fe *FitnessEvaluator) LastMean() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMean
}

// failedFitness scores a configuration the trainer rejects.
const failedFitness = 1e12

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	best  float64
	final float64
	err   error
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated blend of best-ever and final-generation score
// averaged over seeds, so runs that keep improving beat lucky spikes.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runTraining(x, s)
		}(i, seed)
	}
	wg.Wait()

	var total, totalBest float64
	bestRun := math.Inf(1)
	var bestSeed int64

	for i, r := range results {
		if r.err != nil {
			return failedFitness
		}
		f := -(0.5*r.best + 0.5*r.final)
		total += f
		totalBest += r.best
		if f < bestRun {
			bestRun = f
			bestSeed = fe.seeds[i]
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := total / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestSeed = bestSeed
	}
	fe.lastMean = totalBest / n
	fe.mu.Unlock()

	return avgFitness
}

// runTraining executes one short headless training session.
func (fe *FitnessEvaluator) runTraining(x []float64, seed int64) seedResult {
	cfg, err := fe.Configure(x)
	if err != nil {
		return seedResult{err: err}
	}

	t, err := trainer.New(cfg, nil, nil, seed)
	if err != nil {
		return seedResult{err: err}
	}
	defer t.Close()

	var final float64
	for g := 0; g < fe.generations; g++ {
		stats, err := t.RunGeneration(context.Background())
		if err != nil {
			return seedResult{err: err}
		}
		final = stats.BestScore
	}

	best, _ := t.Best()
	return seedResult{best: best.Score, final: final}
}

// Configure returns a deep copy of the base config with the raw parameter
// values x applied. Overrides made to the base config before the search
// (such as -ticks) carry over.
func (fe *FitnessEvaluator) Configure(x []float64) (*config.Config, error) {
	cfg := *fe.baseConfig
	cfg.Food.Clusters = append([]config.FoodCluster(nil), fe.baseConfig.Food.Clusters...)
	cfg.Network.Activations = append([]string(nil), fe.baseConfig.Network.Activations...)
	fe.params.ApplyToConfig(&cfg, x)
	if err := cfg.Refresh(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
