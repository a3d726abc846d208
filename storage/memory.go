package storage

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	checkpoints map[string]Checkpoint
	runs        map[string][]string // run id -> checkpoint ids in save order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.checkpoints = make(map[string]Checkpoint)
	s.runs = make(map[string][]string)
	return nil
}

func (s *MemoryStore) SaveCheckpoint(_ context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.checkpoints[cp.ID]; !exists {
		s.runs[cp.RunID] = append(s.runs[cp.RunID], cp.ID)
	}
	cp.Version = CurrentCodecVersion
	s.checkpoints[cp.ID] = copyCheckpoint(cp)
	return nil
}

func (s *MemoryStore) GetCheckpoint(_ context.Context, id string) (Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[id]
	if !ok {
		return Checkpoint{}, false, nil
	}
	return copyCheckpoint(cp), true, nil
}

func (s *MemoryStore) ListCheckpoints(_ context.Context, runID string) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.runs[runID]
	out := make([]Checkpoint, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyCheckpoint(s.checkpoints[id]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Generation < out[j].Generation })
	return out, nil
}

// copyCheckpoint detaches the record's slices from the caller's.
func copyCheckpoint(cp Checkpoint) Checkpoint {
	cp.Network.Nodes = append(cp.Network.Nodes[:0:0], cp.Network.Nodes...)
	cp.Network.Edges = append(cp.Network.Edges[:0:0], cp.Network.Edges...)
	return cp
}
