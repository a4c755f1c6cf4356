package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Badger stores records under "room:{room}:{key}".
type Badger struct {
	db *badger.DB
}

func OpenBadger(path string, log *slog.Logger) (*Badger, error) {
	options := badger.DefaultOptions(path).WithLogger(badgerLogger{log: log})
	if log.Enabled(context.Background(), slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Badger{db: db}, nil
}

func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

func recordKey(room, key string) []byte {
	return []byte(fmt.Sprintf("room:%s:%s", room, key))
}

func (b *Badger) Get(_ context.Context, room, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(room, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return value, nil
}

func (b *Badger) Put(_ context.Context, room, key string, value []byte) error {
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(room, key), value)
	}); err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}
	return nil
}

// Scan iterates every "room:" key and keeps those whose suffix is key. Room ids may
// themselves contain ':' so the match is done on the trailing segment.
func (b *Badger) Scan(ctx context.Context, key string, fn func(room string, value []byte) error) error {
	prefix := []byte("room:")
	suffix := ":" + key
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			k := string(item.Key())
			if !strings.HasSuffix(k, suffix) {
				continue
			}
			room := strings.TrimSuffix(strings.TrimPrefix(k, "room:"), suffix)
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(room, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}

type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}
