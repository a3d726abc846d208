// Package trainer evolves the network that drives a colony. A fixed
// population of simulations is rolled out in parallel each generation, the
// rollouts are scored, and the next generation's networks are produced by
// either a genetic algorithm or an evolution-strategies gradient step.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/anthill/config"
	"github.com/pthm-cable/anthill/game"
	"github.com/pthm-cable/anthill/neural"
	"github.com/pthm-cable/anthill/storage"
	"github.com/pthm-cable/anthill/telemetry"
)

// Strategies understood by the trainer.
const (
	StrategyGenetic = "genetic"
	StrategyES      = "es"
)

// Option configures a Trainer.
type Option func(*Trainer)

// WithNetwork seeds the population from net instead of fresh networks.
func WithNetwork(net *neural.Network) Option {
	return func(t *Trainer) { t.seedNet = net }
}

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) Option {
	return func(t *Trainer) { t.runID = id }
}

// WithStartGeneration continues generation numbering from gen.
func WithStartGeneration(gen int) Option {
	return func(t *Trainer) { t.generation = gen }
}

// Trainer owns the population of simulations. It is the only writer of the
// best-so-far network and must be driven from a single goroutine.
type Trainer struct {
	cfg    *config.Config
	store  storage.Store
	output *telemetry.OutputManager
	rng    *rand.Rand
	pool   *rolloutPool
	policy neural.MutationPolicy

	runID      string
	generation int
	seedNet    *neural.Network

	engines []*game.Simulation
	base    *neural.Network // es only: the network being optimized

	hall      *telemetry.HallOfFame
	bookmarks *telemetry.BookmarkDetector
	best      storage.Checkpoint
	hasBest   bool
	bestSoFar float64
}

// New builds the population. store and output may be nil to disable
// checkpoints and CSV output respectively.
func New(cfg *config.Config, store storage.Store, output *telemetry.OutputManager, seed int64, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	t := &Trainer{
		cfg:       cfg,
		store:     store,
		output:    output,
		rng:       rand.New(rand.NewSource(seed)),
		pool:      newRolloutPool(cfg.Trainer.Workers),
		hall:      telemetry.NewHallOfFame(cfg.Telemetry.HallOfFameSize),
		bookmarks: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory),
		bestSoFar: math.Inf(-1),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.runID == "" {
		t.runID = uuid.NewString()
	}

	policy, err := mutationPolicy(cfg)
	if err != nil {
		return nil, err
	}
	t.policy = policy

	nets, err := t.initialNetworks()
	if err != nil {
		return nil, err
	}

	genSeed := t.rng.Int63()
	t.engines = make([]*game.Simulation, 0, len(nets))
	for i, net := range nets {
		sim, err := game.NewSimulation(cfg, net, genSeed)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("creating engine %d: %w", i, err)
		}
		t.engines = append(t.engines, sim)
	}
	return t, nil
}

func mutationPolicy(cfg *config.Config) (neural.MutationPolicy, error) {
	acts := make([]neural.Activation, 0, len(cfg.Network.Activations))
	for _, name := range cfg.Network.Activations {
		a, err := neural.ParseActivation(name)
		if err != nil {
			return neural.MutationPolicy{}, fmt.Errorf("network.activations: %w", err)
		}
		acts = append(acts, a)
	}
	return neural.MutationPolicy{
		SplitProbability: cfg.Mutation.SplitProbability,
		Activations:      acts,
	}, nil
}

// freshNetwork creates a starting network per network.initial.
func (t *Trainer) freshNetwork() (*neural.Network, error) {
	in, out := t.cfg.Derived.NumInputs, t.cfg.Derived.NumOutputs
	switch t.cfg.Network.Initial {
	case "", "dense":
		return neural.NewDense(in, out, t.rng), nil
	case "empty":
		return neural.New(in, out), nil
	default:
		return nil, fmt.Errorf("unknown network.initial %q", t.cfg.Network.Initial)
	}
}

// initialNetworks builds generation zero. A seed network occupies engine 0
// and the rest of the population is mutated from it.
func (t *Trainer) initialNetworks() ([]*neural.Network, error) {
	n := t.cfg.Trainer.Population
	nets := make([]*neural.Network, n)

	if t.cfg.Trainer.Strategy == StrategyES {
		base := t.seedNet
		if base == nil {
			var err error
			if base, err = t.freshNetwork(); err != nil {
				return nil, err
			}
		}
		t.base = base.Clone()
		t.fillSiblings(nets)
		return nets, nil
	}

	for i := range nets {
		if t.seedNet != nil {
			net := t.seedNet.Clone()
			if i > 0 {
				t.mutate(net)
			}
			nets[i] = net
			continue
		}
		net, err := t.freshNetwork()
		if err != nil {
			return nil, err
		}
		nets[i] = net
	}
	return nets, nil
}

// RunGeneration rolls out every engine, scores the results, persists the
// best network and prepares the next generation.
func (t *Trainer) RunGeneration(ctx context.Context) (telemetry.GenerationStats, error) {
	start := time.Now()
	t.pool.run(t.engines, t.cfg.Trainer.Ticks)
	rollout := time.Since(start)

	n := len(t.engines)
	scores := make([]float64, n)
	timings := make([]telemetry.PhaseTimings, n)
	stats := telemetry.GenerationStats{
		Generation: t.generation,
		Strategy:   t.cfg.Trainer.Strategy,
		Population: n,
		RolloutSec: rollout.Seconds(),
	}

	bestIdx := 0
	for i, sim := range t.engines {
		scores[i] = Fitness(sim, t.cfg.Fitness)
		timings[i] = sim.Timings()
		st := sim.Stats()
		stats.Pickups += st.FoodPickedUp
		stats.Dropoffs += st.FoodDroppedOff
		if scores[i] > scores[bestIdx] {
			bestIdx = i
		}
	}
	telemetry.ComputeScoreStats(scores).Apply(&stats)

	best := t.engines[bestIdx]
	bestNet := best.Network()
	stats.BestPickups = best.Stats().FoodPickedUp
	stats.BestDropoffs = best.Stats().FoodDroppedOff
	stats.BestHidden = bestNet.Hidden()
	stats.BestEdges = len(bestNet.Edges())

	cp := storage.Checkpoint{
		ID:         uuid.NewString(),
		RunID:      t.runID,
		Generation: t.generation,
		Score:      scores[bestIdx],
		CreatedAt:  time.Now().UTC(),
		Network:    bestNet.ToRecord(),
	}
	if t.store != nil {
		if err := t.store.SaveCheckpoint(ctx, cp); err != nil {
			return stats, fmt.Errorf("saving checkpoint for generation %d: %w", t.generation, err)
		}
		stats.CheckpointID = cp.ID
	}
	if !t.hasBest || cp.Score > t.bestSoFar {
		t.best, t.hasBest, t.bestSoFar = cp, true, cp.Score
	}
	stats.BestSoFar = t.bestSoFar

	t.hall.Consider(telemetry.HallEntry{
		Generation: t.generation,
		Score:      cp.Score,
		Pickups:    stats.BestPickups,
		Dropoffs:   stats.BestDropoffs,
		Network:    cp.Network,
	})

	var (
		next []*neural.Network
		err  error
	)
	switch t.cfg.Trainer.Strategy {
	case StrategyES:
		next, err = t.esStep(scores)
		stats.Unique = len(dedupe(t.ranked(scores)))
	default:
		var unique int
		next, unique = t.geneticStep(scores)
		stats.Unique = unique
	}
	if err != nil {
		return stats, err
	}

	if err := t.output.WriteGeneration(stats); err != nil {
		slog.Warn("failed to write generation stats", "error", err)
	}
	if err := t.output.WritePerf(telemetry.MeanTimings(timings), t.generation); err != nil {
		slog.Warn("failed to write perf stats", "error", err)
	}

	// Every engine sees the same food layout and starting headings.
	genSeed := t.rng.Int63()
	for i, sim := range t.engines {
		if err := sim.Reset(next[i], genSeed); err != nil {
			return stats, fmt.Errorf("resetting engine %d: %w", i, err)
		}
	}
	t.generation++
	return stats, nil
}

// scored pairs a network with its rollout score.
type scored struct {
	net   *neural.Network
	score float64
}

// ranked returns the current population by descending score.
func (t *Trainer) ranked(scores []float64) []scored {
	out := make([]scored, len(t.engines))
	for i, sim := range t.engines {
		out[i] = scored{net: sim.Network(), score: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// dedupe drops networks equal to a higher-ranked one.
func dedupe(ranked []scored) []scored {
	out := ranked[:0:0]
	for _, s := range ranked {
		dup := false
		for _, kept := range out {
			if kept.net.Equal(s.net) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}

// geneticStep keeps the elite unchanged and fills the population with
// mutated offspring of fitness-proportionately sampled parents. Returns the
// next networks and the number of distinct networks this generation had.
func (t *Trainer) geneticStep(scores []float64) ([]*neural.Network, int) {
	n := len(t.engines)
	pool := dedupe(t.ranked(scores))

	elite := int(math.Ceil(t.cfg.Trainer.EliteFraction * float64(n)))
	elite = max(1, min(elite, n, len(pool)))

	next := make([]*neural.Network, 0, n)
	for i := 0; i < elite; i++ {
		next = append(next, pool[i].net.Clone())
	}

	weights := selectionWeights(pool)
	for len(next) < n {
		child := pool[sampleIndex(t.rng, weights)].net.Clone()
		t.mutate(child)
		next = append(next, child)
	}
	return next, len(pool)
}

// mutate applies U{0..MaxStructural} structural mutations, then weight
// noise.
func (t *Trainer) mutate(net *neural.Network) {
	m := t.cfg.Mutation
	for k := t.rng.Intn(m.MaxStructural + 1); k > 0; k-- {
		net.MutateStructure(t.rng, t.policy)
	}
	net.MutateWeights(t.rng, float32(m.Rate), float32(m.Range))
}

// selectionWeights shifts scores so the worst parent keeps a small positive
// chance. Equal scores give uniform weights.
func selectionWeights(pool []scored) []float64 {
	lo := pool[len(pool)-1].score
	hi := pool[0].score
	eps := 1e-3 * (hi - lo)
	if eps == 0 {
		eps = 1
	}

	w := make([]float64, len(pool))
	for i, s := range pool {
		w[i] = s.score - lo + eps
	}
	return w
}

// sampleIndex draws an index with probability proportional to its weight.
func sampleIndex(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// esStep moves the base network along the reward-weighted perturbations of
// engines 1..n and draws new siblings around the result.
func (t *Trainer) esStep(scores []float64) ([]*neural.Network, error) {
	siblings := make([]neural.Sibling, 0, len(t.engines)-1)
	for i := 1; i < len(t.engines); i++ {
		siblings = append(siblings, neural.Sibling{
			Network: t.engines[i].Network(),
			Reward:  scores[i],
		})
	}
	if err := neural.GradientAscent(t.base, siblings, t.cfg.Trainer.LearningRate); err != nil {
		return nil, fmt.Errorf("es update: %w", err)
	}

	next := make([]*neural.Network, len(t.engines))
	t.fillSiblings(next)
	return next, nil
}

// fillSiblings puts the base in slot 0 and perturbed copies everywhere else.
func (t *Trainer) fillSiblings(nets []*neural.Network) {
	sigma := float32(t.cfg.Trainer.Sigma)
	for i := range nets {
		net := t.base.Clone()
		if i > 0 {
			net.MutateWeights(t.rng, 1, sigma)
		}
		nets[i] = net
	}
}

// Train runs generations until ctx is cancelled or trainer.generations
// have completed, then writes the hall of fame. A running rollout always
// finishes; cancellation is observed between generations.
func (t *Trainer) Train(ctx context.Context) error {
	limit := t.cfg.Trainer.Generations
	for done := 0; limit == 0 || done < limit; done++ {
		if ctx.Err() != nil {
			break
		}
		stats, err := t.RunGeneration(ctx)
		if err != nil {
			return err
		}
		slog.Info("generation", "stats", stats)
		for _, bm := range t.bookmarks.Check(stats) {
			bm.LogBookmark()
		}
	}

	if err := t.output.WriteHallOfFame(t.hall); err != nil {
		slog.Warn("failed to write hall of fame", "error", err)
	}
	if t.hasBest {
		slog.Info("training stopped",
			"run", t.runID,
			"generations", t.generation,
			"best_score", t.bestSoFar,
			"best_checkpoint", t.best.ID,
		)
	}
	return nil
}

// Close stops every engine's worker pool.
func (t *Trainer) Close() {
	for _, sim := range t.engines {
		sim.Close()
	}
}

// RunID identifies this training run in the checkpoint store.
func (t *Trainer) RunID() string { return t.runID }

// Generation returns the number of the next generation to run.
func (t *Trainer) Generation() int { return t.generation }

// Best returns the highest-scoring checkpoint so far.
func (t *Trainer) Best() (storage.Checkpoint, bool) { return t.best, t.hasBest }

// HallOfFame returns the top networks of the run.
func (t *Trainer) HallOfFame() *telemetry.HallOfFame { return t.hall }

// Networks returns the networks the engines will run next.
func (t *Trainer) Networks() []*neural.Network {
	out := make([]*neural.Network, len(t.engines))
	for i, sim := range t.engines {
		out[i] = sim.Network()
	}
	return out
}

// Base returns the network being optimized by the es strategy, nil
// otherwise.
func (t *Trainer) Base() *neural.Network { return t.base }
