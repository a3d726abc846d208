package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/anthill/config"
	"github.com/pthm-cable/anthill/storage"
	"github.com/pthm-cable/anthill/telemetry"
	"github.com/pthm-cable/anthill/trainer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	storeKind := flag.String("store", "", "Checkpoint backend: memory, file or sqlite (empty = use config)")
	storePath := flag.String("store-path", "", "Checkpoint directory or database file (empty = use config)")
	resume := flag.String("resume", "", "Checkpoint file or id to continue training from")
	generations := flag.Int("generations", -1, "Stop after N generations (0 = until interrupted, -1 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *generations >= 0 {
		cfg.Trainer.Generations = *generations
	}
	if *storeKind != "" {
		cfg.Storage.Backend = *storeKind
	}
	if *storePath != "" {
		cfg.Storage.Path = *storePath
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, rngSeed, *outputDir, *resume); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, seed int64, outputDir, resume string) error {
	store, err := storage.NewStore(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer func() {
		if err := storage.CloseIfSupported(store); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}()

	output, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer output.Close()

	if err := output.WriteConfig(cfg); err != nil {
		slog.Warn("failed to write config snapshot", "error", err)
	}

	var opts []trainer.Option
	if resume != "" {
		cp, err := storage.Resolve(ctx, store, resume)
		if err != nil {
			return err
		}
		net, err := cp.Build()
		if err != nil {
			return err
		}
		opts = append(opts,
			trainer.WithNetwork(net),
			trainer.WithRunID(cp.RunID),
			trainer.WithStartGeneration(cp.Generation+1),
		)
		slog.Info("resuming", "checkpoint", cp.ID, "run", cp.RunID, "generation", cp.Generation, "score", cp.Score)
	}

	t, err := trainer.New(cfg, store, output, seed, opts...)
	if err != nil {
		return err
	}
	defer t.Close()

	slog.Info("starting training",
		"run", t.RunID(),
		"seed", seed,
		"strategy", cfg.Trainer.Strategy,
		"population", cfg.Trainer.Population,
		"ticks", cfg.Trainer.Ticks,
		"store", cfg.Storage.Backend,
	)

	return t.Train(ctx)
}
