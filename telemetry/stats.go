package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes one trainer generation.
type GenerationStats struct {
	Generation int    `csv:"generation"`
	Strategy   string `csv:"strategy"`
	Population int    `csv:"population"`
	Unique     int    `csv:"unique"` // distinct networks after deduplication

	BestScore  float64 `csv:"best"`
	MeanScore  float64 `csv:"mean"`
	StdScore   float64 `csv:"std"`
	P10Score   float64 `csv:"p10"`
	P50Score   float64 `csv:"p50"`
	P90Score   float64 `csv:"p90"`
	WorstScore float64 `csv:"worst"`
	BestSoFar  float64 `csv:"best_so_far"`

	// Behaviour of the best engine
	BestPickups  int `csv:"best_pickups"`
	BestDropoffs int `csv:"best_dropoffs"`

	// Totals over the population
	Pickups  int `csv:"pickups"`
	Dropoffs int `csv:"dropoffs"`

	// Topology of the best network
	BestHidden int `csv:"best_hidden"`
	BestEdges  int `csv:"best_edges"`

	RolloutSec   float64 `csv:"rollout_sec"`
	CheckpointID string  `csv:"checkpoint_id"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ScoreStats holds the distribution of a generation's scores.
type ScoreStats struct {
	Best, Worst   float64
	Mean, Std     float64
	P10, P50, P90 float64
}

// ComputeScoreStats calculates the spread of scores. The standard deviation
// is the sample deviation and is 0 for fewer than two scores.
func ComputeScoreStats(scores []float64) ScoreStats {
	if len(scores) == 0 {
		return ScoreStats{}
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if math.IsNaN(std) {
		std = 0
	}

	return ScoreStats{
		Best:  sorted[len(sorted)-1],
		Worst: sorted[0],
		Mean:  mean,
		Std:   std,
		P10:   Percentile(sorted, 0.10),
		P50:   Percentile(sorted, 0.50),
		P90:   Percentile(sorted, 0.90),
	}
}

// Apply copies the distribution into the generation record.
func (s ScoreStats) Apply(g *GenerationStats) {
	g.BestScore = s.Best
	g.WorstScore = s.Worst
	g.MeanScore = s.Mean
	g.StdScore = s.Std
	g.P10Score = s.P10
	g.P50Score = s.P50
	g.P90Score = s.P90
}

// LogValue implements slog.LogValuer for structured logging.
func (g GenerationStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("generation", g.Generation),
		slog.String("strategy", g.Strategy),
		slog.Float64("best", g.BestScore),
		slog.Float64("mean", g.MeanScore),
		slog.Float64("std", g.StdScore),
		slog.Float64("best_so_far", g.BestSoFar),
		slog.Int("pickups", g.Pickups),
		slog.Int("dropoffs", g.Dropoffs),
		slog.Int("unique", g.Unique),
		slog.Int("best_hidden", g.BestHidden),
		slog.Int("best_edges", g.BestEdges),
		slog.Float64("rollout_sec", g.RolloutSec),
	}
	if g.CheckpointID != "" {
		attrs = append(attrs, slog.String("checkpoint", g.CheckpointID))
	}
	return slog.GroupValue(attrs...)
}
