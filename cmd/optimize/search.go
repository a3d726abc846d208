package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// searchLog is the CMA-ES objective. It scores each candidate with the
// evaluator, appends a row to optimize_log.csv and keeps the best raw
// parameters seen. Not safe for concurrent use; the search runs
// evaluations sequentially and parallelizes over seeds instead.
type searchLog struct {
	params    *ParamVector
	evaluator *FitnessEvaluator
	maxEvals  int

	f     *os.File
	w     *csv.Writer
	start time.Time

	count       int
	bestFitness float64
	bestParams  []float64
}

func newSearchLog(path string, params *ParamVector, evaluator *FitnessEvaluator, maxEvals int) (*searchLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating search log: %w", err)
	}

	header := []string{"eval", "fitness", "mean_best"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	w := csv.NewWriter(f)
	w.Write(header)
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing search log header: %w", err)
	}

	return &searchLog{
		params:      params,
		evaluator:   evaluator,
		maxEvals:    maxEvals,
		f:           f,
		w:           w,
		start:       time.Now(),
		bestFitness: failedFitness,
	}, nil
}

// objective takes a normalized candidate from the optimizer.
func (l *searchLog) objective(x []float64) float64 {
	raw := l.params.Clamp(l.params.Denormalize(x))
	fitness := l.evaluator.Evaluate(raw)
	mean := l.evaluator.LastMean()
	l.count++

	if l.bestParams == nil || fitness < l.bestFitness {
		l.bestFitness = fitness
		l.bestParams = raw
	}

	row := make([]string, 0, 3+len(raw))
	row = append(row,
		strconv.Itoa(l.count),
		strconv.FormatFloat(fitness, 'f', 6, 64),
		strconv.FormatFloat(mean, 'f', 6, 64),
	)
	for _, v := range raw {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	l.w.Write(row)
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		slog.Warn("failed to write search log", "error", err)
	}

	elapsed := time.Since(l.start)
	eta := elapsed / time.Duration(l.count) * time.Duration(max(l.maxEvals-l.count, 0))
	slog.Info("evaluation",
		"n", l.count,
		"max", l.maxEvals,
		"fitness", fitness,
		"best", l.bestFitness,
		"mean_best", mean,
		"elapsed", elapsed.Round(time.Second).String(),
		"eta", eta.Round(time.Second).String(),
	)
	return fitness
}

// Close flushes and closes the log file.
func (l *searchLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
