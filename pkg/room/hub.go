package room

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/astromechza/toggle-rooms/pkg/session"
	"github.com/astromechza/toggle-rooms/pkg/store"
)

// Hub maps room ids to their coordinators, creating them on first use. Coordinators are
// kept for the life of the process; tearing a room down is left to the caller.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Coordinator
	store store.Store
	log   *slog.Logger
	opts  []Option
}

func NewHub(s store.Store, log *slog.Logger, opts ...Option) *Hub {
	return &Hub{
		rooms: make(map[string]*Coordinator),
		store: s,
		log:   log,
		opts:  opts,
	}
}

func (h *Hub) Room(id string) *Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.rooms[id]
	if ok {
		return c
	}
	c = NewCoordinator(id, h.store, h.log, h.opts...)
	h.rooms[id] = c
	return c
}

func (h *Hub) Lookup(id string) (*Coordinator, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.rooms[id]
	return c, ok
}

// Snapshot returns the state of room id. A coordinator is only registered when the room
// has state, so reads of unknown rooms leave the hub as it was.
func (h *Hub) Snapshot(ctx context.Context, id string) (session.State, bool, error) {
	if c, ok := h.Lookup(id); ok {
		return c.Snapshot(ctx)
	}

	candidate := NewCoordinator(id, h.store, h.log, h.opts...)
	state, ok, err := candidate.Snapshot(ctx)
	if err != nil || !ok {
		return state, ok, err
	}

	h.mu.Lock()
	c, exists := h.rooms[id]
	if !exists {
		h.rooms[id] = candidate
	}
	h.mu.Unlock()
	if exists {
		return c.Snapshot(ctx)
	}
	return state, true, nil
}

// Rooms returns the ids of every coordinator created so far, sorted.
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	ids := lo.Keys(h.rooms)
	h.mu.Unlock()
	slices.Sort(ids)
	return ids
}
