package room

import (
	"errors"
	"sync/atomic"

	"github.com/astromechza/toggle-rooms/pkg/session"
)

// Observer receives failures that are deliberately never reported back over the wire.
type Observer interface {
	Rejected(room string, err error)
	StorageFailed(room string, err error)
}

// Counters is an Observer that only counts.
type Counters struct {
	malformed        atomic.Int64
	schemaViolations atomic.Int64
	storageFailures  atomic.Int64
}

type Stats struct {
	MalformedMessages int64 `json:"malformedMessages"`
	SchemaViolations  int64 `json:"schemaViolations"`
	StorageFailures   int64 `json:"storageFailures"`
}

func (c *Counters) Rejected(_ string, err error) {
	if errors.Is(err, session.ErrMalformedMessage) {
		c.malformed.Add(1)
		return
	}
	c.schemaViolations.Add(1)
}

func (c *Counters) StorageFailed(_ string, _ error) {
	c.storageFailures.Add(1)
}

func (c *Counters) Stats() Stats {
	return Stats{
		MalformedMessages: c.malformed.Load(),
		SchemaViolations:  c.schemaViolations.Load(),
		StorageFailures:   c.storageFailures.Load(),
	}
}

type nopObserver struct{}

func (nopObserver) Rejected(string, error)      {}
func (nopObserver) StorageFailed(string, error) {}
