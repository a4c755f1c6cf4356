//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrNotFound = errors.New("record not found")

// Store is a keyed record store partitioned by room. Each room sees its own key space.
type Store interface {
	// Get returns ErrNotFound when the room has no record under key.
	Get(ctx context.Context, room, key string) ([]byte, error)
	Put(ctx context.Context, room, key string, value []byte) error
	Close() error
}

// Scanner walks every room that holds a record under key.
type Scanner interface {
	Scan(ctx context.Context, key string, fn func(room string, value []byte) error) error
}

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Open returns the backend named by driver. path is ignored by the memory driver.
func Open(driver, path string, log *slog.Logger) (Store, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverBadger:
		return OpenBadger(path, log)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
