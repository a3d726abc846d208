package game

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/anthill/components"
	"github.com/pthm-cable/anthill/config"
	"github.com/pthm-cable/anthill/neural"
)

func testConfig(t testing.TB, modify func(*config.Config)) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Ants.Count = 20
	if modify != nil {
		modify(cfg)
	}
	if err := cfg.Refresh(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func denseNet(cfg *config.Config, seed int64) *neural.Network {
	return neural.NewDense(cfg.Derived.NumInputs, cfg.Derived.NumOutputs, rand.New(rand.NewSource(seed)))
}

func newTestSim(t testing.TB, cfg *config.Config, net *neural.Network, seed int64) *Simulation {
	t.Helper()
	s, err := NewSimulation(cfg, net, seed)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewSimulationRejectsWrongNetwork(t *testing.T) {
	cfg := testConfig(t, nil)

	tests := []struct {
		name    string
		in, out int
	}{
		{"inputs", cfg.Derived.NumInputs + 1, cfg.Derived.NumOutputs},
		{"outputs", cfg.Derived.NumInputs, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimulation(cfg, neural.New(tt.in, tt.out), 1)
			if !errors.Is(err, ErrSizeMismatch) {
				t.Errorf("err = %v, want ErrSizeMismatch", err)
			}
		})
	}
}

func TestInitialState(t *testing.T) {
	cfg := testConfig(t, nil)
	s := newTestSim(t, cfg, denseNet(cfg, 1), 42)

	want := 0
	for _, c := range cfg.Food.Clusters {
		want += c.Count
	}
	if s.FoodRemaining() != want || len(s.Food()) != want {
		t.Errorf("food = %d/%d, want %d", s.FoodRemaining(), len(s.Food()), want)
	}

	c := cfg.Food.Clusters[0]
	center := components.V2(float32(c.X), float32(c.Y))
	for _, f := range s.Food() {
		if d := math.Sqrt(float64(f.Pos.DistSq(center))); d > c.Radius+1e-3 {
			t.Fatalf("food %d placed %v from its cluster centre", f.ID, d)
		}
	}

	for i, p := range s.Ants().Positions {
		if p != (components.Vec2{}) {
			t.Errorf("ant %d starts at %v, want the hill", i, p)
		}
	}
	if s.Tick() != 0 || s.Trails().Live() != 0 {
		t.Error("fresh simulation has ticks or trails")
	}
}

func TestStepDeterministic(t *testing.T) {
	cfg := testConfig(t, nil)
	a := newTestSim(t, cfg, denseNet(cfg, 7), 99)
	b := newTestSim(t, cfg, denseNet(cfg, 7), 99)

	a.Run(200)
	b.Run(200)

	for i := range a.Ants().Positions {
		if a.Ants().Positions[i] != b.Ants().Positions[i] {
			t.Fatalf("ant %d diverged: %v vs %v", i, a.Ants().Positions[i], b.Ants().Positions[i])
		}
	}
	if a.Stats() != b.Stats() {
		t.Errorf("stats diverged: %+v vs %+v", a.Stats(), b.Stats())
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	serialCfg := testConfig(t, func(c *config.Config) { c.Ants.Count = 100 })
	parallelCfg := testConfig(t, func(c *config.Config) {
		c.Ants.Count = 100
		c.Simulation.Workers = 4
		c.Simulation.ParallelThreshold = 1
	})

	serial := newTestSim(t, serialCfg, denseNet(serialCfg, 3), 5)
	parallel := newTestSim(t, parallelCfg, denseNet(parallelCfg, 3), 5)

	serial.Run(150)
	parallel.Run(150)

	sa, pa := serial.Ants(), parallel.Ants()
	for i := range sa.Positions {
		if sa.Positions[i] != pa.Positions[i] || sa.Headings[i] != pa.Headings[i] {
			t.Fatalf("ant %d differs between serial and parallel runs", i)
		}
	}
	for i := range sa.Rays {
		if sa.Rays[i] != pa.Rays[i] {
			t.Fatalf("ray %d differs: %v vs %v", i, sa.Rays[i], pa.Rays[i])
		}
	}
	if serial.Stats() != parallel.Stats() {
		t.Errorf("stats differ: %+v vs %+v", serial.Stats(), parallel.Stats())
	}
}

func TestZeroNetworkWalksStraight(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) { c.Food.Clusters = nil })
	s := newTestSim(t, cfg, neural.New(cfg.Derived.NumInputs, cfg.Derived.NumOutputs), 1)

	headings := append([]float32(nil), s.Ants().Headings...)
	s.Run(60)

	// One simulated second at full speed
	for i, p := range s.Ants().Positions {
		if d := p.Length(); math.Abs(float64(d)-cfg.Ants.Speed) > 0.01 {
			t.Errorf("ant %d is %v from the hill, want %v", i, d, cfg.Ants.Speed)
		}
		if s.Ants().Headings[i] != headings[i] {
			t.Errorf("ant %d turned without a turn signal", i)
		}
	}
}

func TestTrailSpawnSchedule(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) { c.Trails.SpawnInterval = 10 })
	s := newTestSim(t, cfg, denseNet(cfg, 1), 1)

	s.Step()
	if s.Trails().Live() != 1 {
		t.Fatalf("after tick 0 Live = %d, want 1", s.Trails().Live())
	}
	s.Run(9)
	if s.Trails().Live() != 1 {
		t.Fatalf("after 10 ticks Live = %d, want 1", s.Trails().Live())
	}
	s.Step()
	if s.Trails().Live() != 2 {
		t.Fatalf("after tick 10 Live = %d, want 2", s.Trails().Live())
	}

	gen := s.Trails().Generations()[1]
	if len(gen.Positions) != cfg.Ants.Count {
		t.Errorf("generation has %d points, want one per ant", len(gen.Positions))
	}
}

func TestFoodOnTheHillIsCollected(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Food.Clusters = []config.FoodCluster{{X: 0, Y: 0, Radius: 5, Count: 10}}
	})
	s := newTestSim(t, cfg, neural.New(cfg.Derived.NumInputs, cfg.Derived.NumOutputs), 3)

	s.Step()

	// Every item is within reach of the first ants and the hill is right there
	st := s.Stats()
	if st.FoodPickedUp != 10 || st.FoodDroppedOff != 10 {
		t.Errorf("stats = %+v, want 10 picked and 10 dropped", st)
	}
	if s.FoodRemaining() != 0 || len(s.Food()) != 0 {
		t.Errorf("food remaining = %d/%d, want 0", s.FoodRemaining(), len(s.Food()))
	}
	for i, c := range s.Ants().CarriesFood {
		if c {
			t.Errorf("ant %d still carries food on the hill", i)
		}
	}
}

func TestPickupOnlyWhenEmptyHanded(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Ants.Count = 1
		c.Food.Clusters = []config.FoodCluster{{X: 100, Y: 100, Radius: 1, Count: 5}}
	})
	s := newTestSim(t, cfg, denseNet(cfg, 1), 1)

	s.Ants().Positions[0] = components.V2(100, 100)
	s.pickUpFood()
	if !s.Ants().CarriesFood[0] || s.FoodRemaining() != 4 || s.Stats().FoodPickedUp != 1 {
		t.Fatalf("first pickup: carrying=%v remaining=%d stats=%+v",
			s.Ants().CarriesFood[0], s.FoodRemaining(), s.Stats())
	}

	s.pickUpFood()
	if s.FoodRemaining() != 4 || s.Stats().FoodPickedUp != 1 {
		t.Errorf("carrying ant picked up again: remaining=%d", s.FoodRemaining())
	}

	// Away from the hill nothing is dropped
	s.dropOffFood()
	if !s.Ants().CarriesFood[0] {
		t.Fatal("food dropped away from the hill")
	}

	s.Ants().Positions[0] = components.V2(3, -4)
	s.dropOffFood()
	if s.Ants().CarriesFood[0] || s.Stats().FoodDroppedOff != 1 {
		t.Errorf("drop-off on the hill failed: stats=%+v", s.Stats())
	}
}

func TestAntsStayInArena(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) { c.Arena.HalfWidth = 30 })
	s := newTestSim(t, cfg, denseNet(cfg, 11), 11)

	w := float32(cfg.Arena.HalfWidth)
	for tick := 0; tick < 500; tick++ {
		s.Step()
		for i, p := range s.Ants().Positions {
			if p.X < -w || p.X > w || p.Y < -w || p.Y > w {
				t.Fatalf("tick %d: ant %d escaped to %v", tick, i, p)
			}
		}
	}
}

func TestResetRestarts(t *testing.T) {
	cfg := testConfig(t, nil)
	s := newTestSim(t, cfg, denseNet(cfg, 1), 1)
	s.Run(50)

	if s.Stats().Ticks != 50 || s.Tick() != 50 {
		t.Fatalf("Ticks = %d, Tick = %d, want 50", s.Stats().Ticks, s.Tick())
	}
	if s.Timings().Total() <= 0 {
		t.Error("no phase timings recorded")
	}

	next := denseNet(cfg, 2)
	if err := s.Reset(next, 2); err != nil {
		t.Fatal(err)
	}
	if s.Tick() != 0 || s.Stats() != (Stats{}) || s.Trails().Live() != 0 {
		t.Error("Reset left state behind")
	}
	if s.Network() != next {
		t.Error("Reset did not swap the network")
	}
	if s.Timings().Total() != 0 {
		t.Error("Reset did not clear timings")
	}

	if err := s.Reset(neural.New(1, 1), 3); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("Reset with wrong network: err = %v", err)
	}
}

func BenchmarkStep(b *testing.B) {
	cfg := testConfig(b, func(c *config.Config) { c.Ants.Count = 100 })
	s := newTestSim(b, cfg, denseNet(cfg, 1), 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Step()
	}
}
