// Package game runs the ant colony simulation: one Simulation owns a fixed
// set of ants driven by a single shared network, the food supply and the
// pheromone trails, and advances them one tick per Step.
package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/pthm-cable/anthill/components"
	"github.com/pthm-cable/anthill/config"
	"github.com/pthm-cable/anthill/neural"
	"github.com/pthm-cable/anthill/systems"
	"github.com/pthm-cable/anthill/telemetry"
)

// ErrSizeMismatch is returned when a network does not match the configured
// input/output layout.
var ErrSizeMismatch = errors.New("game: network size mismatch")

// Stats counts what happened since the last reset.
type Stats struct {
	Ticks          int
	FoodPickedUp   int
	FoodDroppedOff int
}

// Simulation is a single colony. It is not safe for concurrent use; run
// separate simulations on separate goroutines instead.
type Simulation struct {
	cfg *config.Config
	net *neural.Network
	rng *rand.Rand

	ants   *systems.Ants
	food   *systems.SpatialGrid[components.Food]
	trails *systems.TrailField

	foodLeft    int
	clusterLeft []int // remaining items per configured cluster
	tick        int
	stats       Stats
	timings     telemetry.PhaseTimings

	move        systems.MoveParams
	sensor      systems.SensorParams
	halfWidth   float32
	margin      float32
	turnScale   float32
	smellRadius float32

	serial   workerScratch
	parallel *parallelState
}

// NewSimulation creates a simulation driven by net. The network must have
// cfg.Derived.NumInputs inputs and cfg.Derived.NumOutputs outputs.
func NewSimulation(cfg *config.Config, net *neural.Network, seed int64) (*Simulation, error) {
	d := cfg.Derived
	s := &Simulation{
		cfg:     cfg,
		food:    systems.NewSpatialGrid[components.Food](cfg.Food.GridSize, d.HalfWidth32),
		timings: telemetry.NewPhaseTimings(cfg.Telemetry.TimingWindow),
		move: systems.MoveParams{
			Speed:        float32(cfg.Ants.Speed),
			TurnFraction: float32(cfg.Ants.TurnFraction),
			TickRate:     float32(cfg.Arena.TickRate),
		},
		sensor: systems.SensorParams{
			RayCount:    cfg.Sensors.RayCount,
			AngleStep:   d.RayAngleStep,
			SightRadius: float32(cfg.Sensors.SightRadius),
			FoodRadius:  float32(cfg.Food.Radius),
		},
		halfWidth:   d.HalfWidth32,
		margin:      float32(cfg.Ants.BoundaryMargin),
		turnScale:   float32(cfg.Ants.TurnScale),
		smellRadius: float32(cfg.Sensors.SmellRadius),
	}
	s.trails = systems.NewTrailField(cfg.Ants.Count, cfg.Trails.GridSize, d.HalfWidth32, systems.TrailParams{
		Growth:      float32(cfg.Trails.Growth),
		Threshold:   float32(cfg.Trails.Threshold),
		Strength:    float32(cfg.Trails.Strength),
		InitialSize: float32(cfg.Trails.InitialSize),
	})

	if cfg.Simulation.Workers > 1 {
		s.parallel = newParallelState(cfg.Simulation.Workers)
	}

	if err := s.Reset(net, seed); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset restarts the colony with a new network: ants back on the hill, a
// fresh food supply, no trails and zeroed stats.
func (s *Simulation) Reset(net *neural.Network, seed int64) error {
	d := s.cfg.Derived
	if net.Inputs() != d.NumInputs || net.Outputs() != d.NumOutputs {
		return fmt.Errorf("%w: network is %d×%d, want %d×%d",
			ErrSizeMismatch, net.Inputs(), net.Outputs(), d.NumInputs, d.NumOutputs)
	}

	s.net = net
	s.rng = rand.New(rand.NewSource(seed))

	if s.ants == nil {
		s.ants = systems.NewAnts(s.cfg.Ants.Count, s.cfg.Sensors.RayCount, s.rng)
	} else {
		s.ants.Reset(s.rng)
	}

	s.placeFood()
	s.trails.Reset()
	s.tick = 0
	s.stats = Stats{}
	s.timings.Reset()
	return nil
}

// placeFood scatters every cluster's items uniformly over its disc.
func (s *Simulation) placeFood() {
	s.food.Clear()
	s.foodLeft = 0
	s.clusterLeft = s.clusterLeft[:0]

	var id int32
	for ci, c := range s.cfg.Food.Clusters {
		s.clusterLeft = append(s.clusterLeft, c.Count)
		center := components.V2(float32(c.X), float32(c.Y))
		for k := 0; k < c.Count; k++ {
			r := float32(c.Radius * math.Sqrt(s.rng.Float64()))
			angle := s.rng.Float32() * 2 * math.Pi
			pos := center.Add(components.FromAngle(angle).Scale(r))
			s.food.Insert(pos, components.Food{ID: id, Cluster: int32(ci), Pos: pos})
			id++
			s.foodLeft++
		}
	}
}

// Close stops the worker pool, if any.
func (s *Simulation) Close() {
	if s.parallel != nil {
		s.parallel.stopWorkers()
	}
}

// Step advances the simulation by one tick. Phases run strictly in order;
// inference and sensing may spread ants over the worker pool.
func (s *Simulation) Step() {
	n := s.ants.Len()

	start := time.Now()
	s.forEachAnt(phaseInference, n)
	s.timings.Record(telemetry.PhaseInference, time.Since(start))

	start = time.Now()
	for i := 0; i < n; i++ {
		s.ants.Move(i, s.move)
	}
	s.timings.Record(telemetry.PhaseKinematics, time.Since(start))

	start = time.Now()
	s.forEachAnt(phaseSensing, n)
	s.timings.Record(telemetry.PhaseSensing, time.Since(start))

	start = time.Now()
	for i := 0; i < n; i++ {
		s.ants.Contain(i, s.halfWidth, s.margin)
	}
	s.timings.Record(telemetry.PhaseBoundary, time.Since(start))

	start = time.Now()
	if s.tick%s.cfg.Derived.TicksPerSpawn == 0 {
		s.trails.Spawn(s.ants.Positions, s.ants.Colors)
	}
	s.timings.Record(telemetry.PhaseTrailSpawn, time.Since(start))

	start = time.Now()
	s.trails.Decay()
	s.timings.Record(telemetry.PhaseTrailDecay, time.Since(start))

	start = time.Now()
	s.pickUpFood()
	s.timings.Record(telemetry.PhaseFoodPickup, time.Since(start))

	start = time.Now()
	s.dropOffFood()
	s.timings.Record(telemetry.PhaseFoodDropoff, time.Since(start))

	s.tick++
	s.stats.Ticks = s.tick
}

// Run steps the simulation n times.
func (s *Simulation) Run(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// infer feeds ant i's senses through the network and steers it.
func (s *Simulation) infer(i int, scratch *workerScratch) {
	smell := s.trails.Smell(s.ants.Positions[i], s.smellRadius)
	scratch.inputs = s.ants.FillInputs(i, scratch.inputs, s.halfWidth, s.sensor.SightRadius, smell)

	if need := s.net.ValuesLen(); cap(scratch.values) < need {
		scratch.values = make([]float32, need)
	}
	out := s.net.RunInto(scratch.values, scratch.inputs)
	s.ants.Steer(i, out, s.turnScale)
}

// sense refreshes ant i's ray readings.
func (s *Simulation) sense(i int, scratch *workerScratch) {
	scratch.dirs = systems.SenseFood(s.ants, i, s.food, s.sensor, scratch.dirs)
}

// pickUpFood gives each empty-handed ant the first food item within reach.
func (s *Simulation) pickUpFood() {
	reach := float32(s.cfg.Food.PickupDistance)
	reachSq := s.cfg.Derived.PickupDistSq

	for i := 0; i < s.ants.Len(); i++ {
		if s.ants.CarriesFood[i] {
			continue
		}
		pos := s.ants.Positions[i]

		s.food.ForEachInRadius(pos, reach, func(cell *[]components.Food) bool {
			items := *cell
			for k, item := range items {
				if item.Pos.DistSq(pos) > reachSq {
					continue
				}
				*cell = append(items[:k], items[k+1:]...)
				s.ants.CarriesFood[i] = true
				s.foodLeft--
				s.clusterLeft[item.Cluster]--
				s.stats.FoodPickedUp++
				return false
			}
			return true
		})
	}
}

// dropOffFood empties the hands of carrying ants standing on the hill.
func (s *Simulation) dropOffFood() {
	hillSq := s.cfg.Derived.HillRadiusSq
	for i := 0; i < s.ants.Len(); i++ {
		if s.ants.CarriesFood[i] && s.ants.Positions[i].LengthSq() <= hillSq {
			s.ants.CarriesFood[i] = false
			s.stats.FoodDroppedOff++
		}
	}
}

// Ants returns the agent state. Valid until the next Step.
func (s *Simulation) Ants() *systems.Ants { return s.ants }

// Food returns every remaining food item.
func (s *Simulation) Food() []components.Food { return s.food.All() }

// FoodRemaining returns the number of items not yet picked up.
func (s *Simulation) FoodRemaining() int { return s.foodLeft }

// ClusterFood returns the remaining items per configured food cluster.
func (s *Simulation) ClusterFood() []int { return s.clusterLeft }

// Trails returns the pheromone field. Valid until the next Step.
func (s *Simulation) Trails() *systems.TrailField { return s.trails }

// Stats returns the counters since the last reset.
func (s *Simulation) Stats() Stats { return s.stats }

// Timings returns the smoothed per-phase durations.
func (s *Simulation) Timings() telemetry.PhaseTimings { return s.timings }

// Network returns the network driving the ants.
func (s *Simulation) Network() *neural.Network { return s.net }

// Tick returns the number of steps taken since the last reset.
func (s *Simulation) Tick() int { return s.tick }

// Config returns the configuration the simulation was built with.
func (s *Simulation) Config() *config.Config { return s.cfg }
