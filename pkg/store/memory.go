package store

import (
	"context"
	"slices"
	"sync"
)

type Memory struct {
	mu      sync.RWMutex
	records map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, room, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.records[room][key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(value), nil
}

func (m *Memory) Put(_ context.Context, room, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[room]; !ok {
		m.records[room] = make(map[string][]byte)
	}
	m.records[room][key] = slices.Clone(value)
	return nil
}

func (m *Memory) Scan(ctx context.Context, key string, fn func(room string, value []byte) error) error {
	m.mu.RLock()
	rooms := make([]string, 0, len(m.records))
	for room, keys := range m.records {
		if _, ok := keys[key]; ok {
			rooms = append(rooms, room)
		}
	}
	m.mu.RUnlock()
	slices.Sort(rooms)

	for _, room := range rooms {
		if err := ctx.Err(); err != nil {
			return err
		}
		value, err := m.Get(ctx, room, key)
		if err != nil {
			continue
		}
		if err := fn(room, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
