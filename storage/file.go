package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore writes one JSON file per checkpoint under
// <dir>/<run>/gen-<generation>_<timestamp>_<score>.json.
type FileStore struct {
	dir string

	mu          sync.RWMutex
	initialized bool
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return errors.New("file store directory is required")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}
	s.initialized = true
	return nil
}

// CheckpointFileName returns the file name a checkpoint is saved under.
func CheckpointFileName(cp Checkpoint) string {
	return fmt.Sprintf("gen-%05d_%s_%.2f.json",
		cp.Generation, cp.CreatedAt.UTC().Format("20060102T150405Z"), cp.Score)
}

// Path returns where a checkpoint lives on disk.
func (s *FileStore) Path(cp Checkpoint) string {
	return filepath.Join(s.dir, cp.RunID, CheckpointFileName(cp))
}

func (s *FileStore) SaveCheckpoint(_ context.Context, cp Checkpoint) error {
	if err := s.ready(); err != nil {
		return err
	}

	payload, err := EncodeCheckpoint(cp)
	if err != nil {
		return err
	}

	path := s.Path(cp)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	// Write then rename so readers never see a partial file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) GetCheckpoint(ctx context.Context, id string) (Checkpoint, bool, error) {
	if err := s.ready(); err != nil {
		return Checkpoint{}, false, err
	}

	runs, err := os.ReadDir(s.dir)
	if err != nil {
		return Checkpoint{}, false, err
	}
	for _, run := range runs {
		if !run.IsDir() {
			continue
		}
		list, err := s.ListCheckpoints(ctx, run.Name())
		if err != nil {
			return Checkpoint{}, false, err
		}
		for _, cp := range list {
			if cp.ID == id {
				return cp, true, nil
			}
		}
	}
	return Checkpoint{}, false, nil
}

func (s *FileStore) ListCheckpoints(_ context.Context, runID string) ([]Checkpoint, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []Checkpoint
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		cp, err := LoadFile(filepath.Join(s.dir, runID, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Generation < out[j].Generation })
	return out, nil
}

func (s *FileStore) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}
