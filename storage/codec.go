package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// CurrentCodecVersion is written into every checkpoint payload.
const CurrentCodecVersion = 1

var ErrVersionMismatch = errors.New("storage: checkpoint version mismatch")

// EncodeCheckpoint serializes a checkpoint, stamping the codec version.
func EncodeCheckpoint(cp Checkpoint) ([]byte, error) {
	cp.Version = CurrentCodecVersion
	return json.MarshalIndent(cp, "", "  ")
}

// DecodeCheckpoint parses a payload and checks its version.
func DecodeCheckpoint(data []byte) (Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, err
	}
	if cp.Version != CurrentCodecVersion {
		return Checkpoint{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, cp.Version, CurrentCodecVersion)
	}
	return cp, nil
}

// LoadFile reads a checkpoint file written by any backend's encoder.
func LoadFile(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Checkpoint{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Checkpoint{}, fmt.Errorf("reading checkpoint: %w", err)
	}
	cp, err := DecodeCheckpoint(data)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return cp, nil
}
