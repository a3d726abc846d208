package storage

import (
	"context"
	"fmt"
	"os"
)

// NewStore builds an uninitialized store for a backend name. path is the
// directory for "file" and the database file for "sqlite".
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// Resolve loads a checkpoint from a file path, or by id from store when no
// such file exists.
func Resolve(ctx context.Context, store Store, ref string) (Checkpoint, error) {
	if _, err := os.Stat(ref); err == nil {
		return LoadFile(ref)
	}

	if store != nil {
		cp, ok, err := store.GetCheckpoint(ctx, ref)
		if err != nil {
			return Checkpoint{}, err
		}
		if ok {
			return cp, nil
		}
	}
	return Checkpoint{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}
