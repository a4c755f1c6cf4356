// Package room owns the per-room lifecycle: loading and persisting the session state,
// admitting actions one at a time and fanning the result out to joined connections.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/astromechza/toggle-rooms/pkg/session"
	"github.com/astromechza/toggle-rooms/pkg/store"
)

// StateKey is the record key under which a room's state is persisted.
const StateKey = "state"

var ErrStorageFailure = errors.New("storage failure")

// Conn is one joined connection as seen by the coordinator. Send must not block on the
// network; the transport queues the bytes.
type Conn interface {
	ID() string
	Send(msg []byte) error
}

type Status int

const (
	Uninitialized Status = iota
	Active
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// Coordinator is the single owner of one room's state. Every read or write of the state,
// and every fan-out of the result, happens under mu so actions are applied and observed
// in admission order.
type Coordinator struct {
	id       string
	store    store.Store
	log      *slog.Logger
	now      func() time.Time
	observer Observer

	mu     sync.Mutex
	status Status
	state  session.State
	conns  map[string]Conn
}

func NewCoordinator(id string, s store.Store, log *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		id:       id,
		store:    s,
		log:      log.With("room", id),
		now:      time.Now,
		observer: nopObserver{},
		conns:    make(map[string]Conn),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) ID() string {
	return c.id
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) Connections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// Join registers conn and unicasts the current snapshot to it. Nobody else is notified.
// If the state cannot be read the room stays uninitialized and the error is returned so
// the caller can drop the connection; the next join retries the load.
func (c *Coordinator) Join(ctx context.Context, conn Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}

	msg, err := json.Marshal(snapshotEnvelope(c.state, conn.ID(), c.now().UnixMilli()))
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := conn.Send(msg); err != nil {
		return fmt.Errorf("failed to send snapshot: %w", err)
	}
	c.conns[conn.ID()] = conn
	c.log.Info("connection joined", "conn", conn.ID(), "connections", len(c.conns))
	return nil
}

// Leave is bookkeeping only; the state is untouched.
func (c *Coordinator) Leave(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.conns[conn.ID()]; !ok {
		return
	}
	delete(c.conns, conn.ID())
	c.log.Info("connection left", "conn", conn.ID(), "connections", len(c.conns))
}

// HandleMessage admits one inbound frame from conn. Invalid frames and storage failures
// are reported to the observer and returned, but nothing is sent to anyone and the
// in-memory state is left as it was.
func (c *Coordinator) HandleMessage(ctx context.Context, conn Conn, raw []byte) error {
	action, err := session.ParseAction(raw)
	if err != nil {
		c.log.Warn("discarding invalid action", "conn", conn.ID(), "err", err)
		c.observer.Rejected(c.id, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}

	now := c.now()
	// committed timestamps never go backwards, including across a reset
	if floor := time.UnixMilli(c.state.UpdatedAt + 1); now.Before(floor) {
		now = floor
	}
	next, changed := session.Transition(c.state, action, now)

	env, err := updateEnvelope(next, action, conn.ID(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}
	msg, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}

	if !changed {
		// reads are answered to the requester only and never written
		if err := conn.Send(msg); err != nil {
			c.dropLocked(conn.ID(), err)
		}
		return nil
	}

	if err := c.persist(ctx, next); err != nil {
		c.log.Error("discarding action, state not persisted", "conn", conn.ID(), "action", action.Type(), "err", err)
		return err
	}
	c.state = next
	c.log.Debug("applied action", "conn", conn.ID(), "action", action.Type(), "isToggled", next.IsToggled)
	c.broadcast(msg)
	return nil
}

// Snapshot returns the current state without creating one. The bool is false when the
// room has never been initialized.
func (c *Coordinator) Snapshot(ctx context.Context) (session.State, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == Active {
		return c.state, true, nil
	}
	state, err := c.load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return session.State{}, false, nil
	}
	if err != nil {
		return session.State{}, false, err
	}
	c.state = state
	c.status = Active
	return state, true, nil
}

// broadcast sends msg to every joined connection, the sender included. Callers hold mu.
func (c *Coordinator) broadcast(msg []byte) {
	for id, conn := range c.conns {
		if err := conn.Send(msg); err != nil {
			c.dropLocked(id, err)
		}
	}
}

func (c *Coordinator) dropLocked(id string, err error) {
	if _, ok := c.conns[id]; !ok {
		return
	}
	delete(c.conns, id)
	c.log.Warn("dropped connection after failed send", "conn", id, "err", err)
}

// ensureLoaded moves the room to Active, loading the persisted state or creating and
// persisting a fresh one. Callers hold mu.
func (c *Coordinator) ensureLoaded(ctx context.Context) error {
	if c.status == Active {
		return nil
	}

	state, err := c.load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		state, _ = session.Transition(session.State{}, session.InitializeSession{SessionID: c.id}, c.now())
		if err := c.persist(ctx, state); err != nil {
			// a fresh default loses nothing if it is not written; the next accepted action persists
			c.log.Warn("failed to persist initial state", "err", err)
		}
		c.log.Info("created state")
	case err != nil:
		c.log.Error("failed to load state", "err", err)
		return err
	default:
		c.log.Info("loaded state", "isToggled", state.IsToggled, "updatedAt", state.UpdatedAt)
	}

	c.state = state
	c.status = Active
	return nil
}

func (c *Coordinator) load(ctx context.Context) (session.State, error) {
	raw, err := c.store.Get(ctx, c.id, StateKey)
	if errors.Is(err, store.ErrNotFound) {
		return session.State{}, err
	}
	if err != nil {
		c.observer.StorageFailed(c.id, err)
		return session.State{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	var state session.State
	if err := json.Unmarshal(raw, &state); err != nil {
		c.observer.StorageFailed(c.id, err)
		return session.State{}, fmt.Errorf("%w: failed to decode persisted state: %w", ErrStorageFailure, err)
	}
	if err := state.Validate(); err != nil {
		c.observer.StorageFailed(c.id, err)
		return session.State{}, fmt.Errorf("%w: invalid persisted state: %w", ErrStorageFailure, err)
	}
	return state, nil
}

func (c *Coordinator) persist(ctx context.Context, state session.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := c.store.Put(ctx, c.id, StateKey, raw); err != nil {
		c.observer.StorageFailed(c.id, err)
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return nil
}
