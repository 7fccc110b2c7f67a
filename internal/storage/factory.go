package storage

import (
	"fmt"
	"log/slog"
)

const DefaultStoreKind = "memory"

// Kinds lists the backends NewStore understands. sqlite needs -tags sqlite.
func Kinds() []string {
	return []string{"badger", "memory", "sqlite"}
}

// NewStore builds an uninitialized store. For badger an empty path selects
// an in-memory database.
func NewStore(kind, path string, logger *slog.Logger) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(path)
	case "badger":
		return NewBadgerStore(BadgerConfig{
			Path:     path,
			InMemory: path == "",
			Logger:   logger,
		}), nil
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
