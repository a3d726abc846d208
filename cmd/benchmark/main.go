// Package main measures how many steps per second a single simulation
// manages with the configured colony size.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/anthill/config"
	"github.com/pthm-cable/anthill/game"
	"github.com/pthm-cable/anthill/neural"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	steps := flag.Int("steps", 5000, "Number of steps to run")
	ants := flag.Int("ants", 0, "Override ants.count (0 = use config)")
	workers := flag.Int("workers", 0, "Override simulation.workers (0 = use config)")
	interval := flag.Duration("interval", time.Second, "Progress report interval")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *ants > 0 {
		cfg.Ants.Count = *ants
	}
	if *workers > 0 {
		cfg.Simulation.Workers = *workers
	}
	if err := cfg.Refresh(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	net := neural.NewDense(cfg.Derived.NumInputs, cfg.Derived.NumOutputs, rand.New(rand.NewSource(*seed)))
	sim, err := game.NewSimulation(cfg, net, *seed)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	defer sim.Close()

	fmt.Printf("Benchmarking %s ants, %s steps, %d rays\n",
		humanize.Comma(int64(cfg.Ants.Count)), humanize.Comma(int64(*steps)), cfg.Sensors.RayCount)

	start := time.Now()
	lastPrint := start
	for i := 0; i < *steps; i++ {
		sim.Step()

		if time.Since(lastPrint) >= *interval {
			lastPrint = time.Now()
			fmt.Printf("steps: %s - %s steps/s - trails: %d live\n",
				humanize.Comma(int64(sim.Tick())),
				humanize.CommafWithDigits(rate(sim.Tick(), time.Since(start)), 1),
				sim.Trails().Live())
		}
	}

	elapsed := time.Since(start)
	stats := sim.Stats()
	fmt.Printf("\n%s steps in %s (%s steps/s)\n",
		humanize.Comma(int64(sim.Tick())), elapsed.Round(time.Millisecond),
		humanize.CommafWithDigits(rate(sim.Tick(), elapsed), 1))
	fmt.Printf("picked up %d, dropped off %d, %d food left\n",
		stats.FoodPickedUp, stats.FoodDroppedOff, sim.FoodRemaining())

	slog.Info("phase timings", "timings", sim.Timings())
}

func rate(steps int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(steps) / d.Seconds()
}
