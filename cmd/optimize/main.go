// Command optimize tunes the trainer's hyperparameters with CMA-ES. Each
// candidate is scored by short training runs over several seeds. The best
// candidate is saved as best_config.yaml and replayed once with full
// training output under best_run/.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/anthill/config"
	"github.com/pthm-cable/anthill/telemetry"
	"github.com/pthm-cable/anthill/trainer"
)

type searchOptions struct {
	configPath  string
	outputDir   string
	generations int
	ticks       int
	seeds       int
	maxEvals    int
	population  int
	replay      bool
}

func main() {
	var o searchOptions
	flag.StringVar(&o.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&o.outputDir, "output", "", "Output directory for results")
	flag.IntVar(&o.generations, "generations", 10, "Training generations per evaluation")
	flag.IntVar(&o.ticks, "ticks", 0, "Override trainer.ticks per rollout (0 = use config)")
	flag.IntVar(&o.seeds, "seeds", 3, "Training runs per evaluation, one seed each")
	flag.IntVar(&o.maxEvals, "max-evals", 100, "Maximum number of evaluations")
	flag.IntVar(&o.population, "population", 0, "CMA-ES population size (0 = gonum default)")
	flag.BoolVar(&o.replay, "replay", true, "Retrain the best candidate with full output under <output>/best_run")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(o); err != nil {
		slog.Error("optimization failed", "error", err)
		os.Exit(1)
	}
}

func run(o searchOptions) error {
	if o.outputDir == "" {
		return errors.New("-output is required")
	}
	if o.generations <= 0 || o.seeds <= 0 {
		return errors.New("-generations and -seeds must be > 0")
	}
	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.ticks > 0 {
		baseCfg.Trainer.Ticks = o.ticks
		if err := baseCfg.Refresh(); err != nil {
			return err
		}
	}

	params := NewParamVector(baseCfg.Trainer.Strategy)
	seeds := make([]int64, o.seeds)
	for i := range seeds {
		seeds[i] = int64(i)*1000 + 42
	}
	evaluator := NewFitnessEvaluator(params, o.generations, seeds, baseCfg)

	search, err := newSearchLog(filepath.Join(o.outputDir, "optimize_log.csv"), params, evaluator, o.maxEvals)
	if err != nil {
		return err
	}
	defer search.Close()

	slog.Info("starting search",
		"strategy", baseCfg.Trainer.Strategy,
		"params", params.Dim(),
		"max_evals", o.maxEvals,
		"seeds", o.seeds,
		"generations", o.generations,
		"ticks", baseCfg.Trainer.Ticks,
	)

	_, err = optimize.Minimize(
		optimize.Problem{Func: search.objective},
		params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: o.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: o.population},
	)
	if err != nil {
		slog.Info("search ended", "reason", err)
	}
	if search.bestParams == nil {
		return errors.New("no candidate was evaluated")
	}

	// Rebuilt from the evaluated base so the -ticks override is kept.
	bestCfg, err := evaluator.Configure(search.bestParams)
	if err != nil {
		return fmt.Errorf("applying best parameters: %w", err)
	}
	configPath := filepath.Join(o.outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configPath); err != nil {
		return err
	}

	attrs := []any{
		"fitness", search.bestFitness,
		"evaluations", search.count,
		"elapsed", time.Since(search.start).Round(time.Second).String(),
		"config", configPath,
	}
	slog.Info("best candidate", append(attrs, strategyAttrs(bestCfg)...)...)

	if !o.replay {
		return nil
	}
	dir := filepath.Join(o.outputDir, "best_run")
	seed := evaluator.BestSeed()
	slog.Info("replaying best candidate", "seed", seed, "generations", o.generations, "dir", dir)
	return replay(bestCfg, seed, o.generations, dir)
}

// strategyAttrs describes what the tuned values mean for the strategy
// being trained.
func strategyAttrs(cfg *config.Config) []any {
	tc := cfg.Trainer
	if tc.Strategy == trainer.StrategyES {
		return []any{
			"learning_rate", tc.LearningRate,
			"sigma", tc.Sigma,
			"step", tc.LearningRate * tc.Sigma,
			"siblings", tc.Population - 1,
		}
	}
	elite := max(1, int(math.Ceil(tc.EliteFraction*float64(tc.Population))))
	return []any{
		"elite", elite,
		"population", tc.Population,
		"mutation_rate", cfg.Mutation.Rate,
		"mutation_range", cfg.Mutation.Range,
		"max_structural", cfg.Mutation.MaxStructural,
		"split_probability", cfg.Mutation.SplitProbability,
	}
}

// replay retrains cfg on one seed and writes the run's generations.csv,
// perf.csv, config.yaml and hall_of_fame.json to dir. Training is
// deterministic per seed, so this reproduces the evaluated run.
func replay(cfg *config.Config, seed int64, generations int, dir string) error {
	out, err := telemetry.NewOutputManager(dir)
	if err != nil {
		return err
	}
	defer out.Close()

	cfg.Trainer.Generations = generations
	if err := out.WriteConfig(cfg); err != nil {
		return fmt.Errorf("writing replay config: %w", err)
	}

	t, err := trainer.New(cfg, nil, out, seed)
	if err != nil {
		return err
	}
	defer t.Close()
	return t.Train(context.Background())
}
