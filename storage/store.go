// Package storage persists trained networks as checkpoints. Backends share
// one JSON payload format (see codec.go) and differ only in where it lives.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pthm-cable/anthill/neural"
)

// ErrNotFound is returned when a checkpoint reference resolves to nothing.
var ErrNotFound = errors.New("storage: checkpoint not found")

// Checkpoint is a network saved at the end of a generation.
type Checkpoint struct {
	Version    int           `json:"version"`
	ID         string        `json:"id"`
	RunID      string        `json:"run_id"`
	Generation int           `json:"generation"`
	Score      float64       `json:"score"`
	CreatedAt  time.Time     `json:"created_at"`
	Network    neural.Record `json:"network"`
}

// Build validates the stored record and returns a ready network.
func (c Checkpoint) Build() (*neural.Network, error) {
	return neural.FromRecord(c.Network)
}

// Store defines checkpoint persistence operations.
type Store interface {
	Init(ctx context.Context) error
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
	GetCheckpoint(ctx context.Context, id string) (Checkpoint, bool, error)
	// ListCheckpoints returns a run's checkpoints ordered by generation.
	ListCheckpoints(ctx context.Context, runID string) ([]Checkpoint, error)
}

// BestCheckpoint returns the highest-scoring checkpoint of a run.
func BestCheckpoint(ctx context.Context, store Store, runID string) (Checkpoint, bool, error) {
	list, err := store.ListCheckpoints(ctx, runID)
	if err != nil {
		return Checkpoint{}, false, err
	}
	if len(list) == 0 {
		return Checkpoint{}, false, nil
	}
	best := list[0]
	for _, cp := range list[1:] {
		if cp.Score > best.Score {
			best = cp
		}
	}
	return best, true, nil
}
