package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one stage of a simulation step.
type Phase int

// Phases in execution order.
const (
	PhaseInference Phase = iota
	PhaseKinematics
	PhaseSensing
	PhaseBoundary
	PhaseTrailSpawn
	PhaseTrailDecay
	PhaseFoodPickup
	PhaseFoodDropoff
	NumPhases
)

var phaseNames = [NumPhases]string{
	PhaseInference:   "inference",
	PhaseKinematics:  "kinematics",
	PhaseSensing:     "sensing",
	PhaseBoundary:    "boundary",
	PhaseTrailSpawn:  "trail_spawn",
	PhaseTrailDecay:  "trail_decay",
	PhaseFoodPickup:  "food_pickup",
	PhaseFoodDropoff: "food_dropoff",
}

func (p Phase) String() string {
	if p >= 0 && p < NumPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// DefaultTimingWindow is the smoothing window used when none is configured.
const DefaultTimingWindow = 60

// PhaseTimings keeps an exponentially smoothed duration per phase:
// avg = ((window-1)·avg + sample) / window.
type PhaseTimings struct {
	window int
	avg    [NumPhases]time.Duration
}

// NewPhaseTimings creates zeroed timings with the given smoothing window.
func NewPhaseTimings(window int) PhaseTimings {
	if window < 1 {
		window = DefaultTimingWindow
	}
	return PhaseTimings{window: window}
}

// Record folds a new sample into the phase average.
func (t *PhaseTimings) Record(p Phase, d time.Duration) {
	w := time.Duration(t.window)
	if w < 1 {
		w = DefaultTimingWindow
	}
	t.avg[p] = ((w-1)*t.avg[p] + d) / w
}

// Get returns the smoothed duration of a phase.
func (t PhaseTimings) Get(p Phase) time.Duration { return t.avg[p] }

// Total returns the smoothed duration of a whole step.
func (t PhaseTimings) Total() time.Duration {
	var sum time.Duration
	for _, d := range t.avg {
		sum += d
	}
	return sum
}

// Reset zeroes every average.
func (t *PhaseTimings) Reset() {
	t.avg = [NumPhases]time.Duration{}
}

// MeanTimings averages timings from several engines.
func MeanTimings(ts []PhaseTimings) PhaseTimings {
	out := NewPhaseTimings(DefaultTimingWindow)
	if len(ts) == 0 {
		return out
	}
	out.window = ts[0].window
	for p := Phase(0); p < NumPhases; p++ {
		var sum time.Duration
		for _, t := range ts {
			sum += t.avg[p]
		}
		out.avg[p] = sum / time.Duration(len(ts))
	}
	return out
}

// StepsPerSecond derives throughput from the smoothed step duration.
func (t PhaseTimings) StepsPerSecond() float64 {
	total := t.Total()
	if total <= 0 {
		return 0
	}
	return float64(time.Second) / float64(total)
}

// LogValue implements slog.LogValuer for structured logging.
func (t PhaseTimings) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, NumPhases+2)
	attrs = append(attrs,
		slog.Int64("step_us", t.Total().Microseconds()),
		slog.Float64("steps_per_sec", t.StepsPerSecond()),
	)
	for p := Phase(0); p < NumPhases; p++ {
		attrs = append(attrs, slog.Int64(p.String()+"_us", t.avg[p].Microseconds()))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of step timings.
type PerfStatsCSV struct {
	Generation    int     `csv:"generation"`
	StepUS        float64 `csv:"step_us"`
	StepsPerSec   float64 `csv:"steps_per_sec"`
	InferenceUS   float64 `csv:"inference_us"`
	KinematicsUS  float64 `csv:"kinematics_us"`
	SensingUS     float64 `csv:"sensing_us"`
	BoundaryUS    float64 `csv:"boundary_us"`
	TrailSpawnUS  float64 `csv:"trail_spawn_us"`
	TrailDecayUS  float64 `csv:"trail_decay_us"`
	FoodPickupUS  float64 `csv:"food_pickup_us"`
	FoodDropoffUS float64 `csv:"food_dropoff_us"`
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// ToCSV converts timings to a flat CSV-friendly struct.
func (t PhaseTimings) ToCSV(generation int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:    generation,
		StepUS:        micros(t.Total()),
		StepsPerSec:   t.StepsPerSecond(),
		InferenceUS:   micros(t.avg[PhaseInference]),
		KinematicsUS:  micros(t.avg[PhaseKinematics]),
		SensingUS:     micros(t.avg[PhaseSensing]),
		BoundaryUS:    micros(t.avg[PhaseBoundary]),
		TrailSpawnUS:  micros(t.avg[PhaseTrailSpawn]),
		TrailDecayUS:  micros(t.avg[PhaseTrailDecay]),
		FoodPickupUS:  micros(t.avg[PhaseFoodPickup]),
		FoodDropoffUS: micros(t.avg[PhaseFoodDropoff]),
	}
}
