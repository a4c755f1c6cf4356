// Package session holds the authoritative state of a room and the pure transition
// function applied to it. Nothing in here performs I/O.
package session

import (
	"fmt"
	"time"
)

// State is the complete shared value of one room. Timestamps are unix milliseconds.
type State struct {
	ID        string `json:"id"`
	IsToggled bool   `json:"isToggled"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func NewState(id string, now time.Time) State {
	ts := now.UnixMilli()
	return State{
		ID:        id,
		IsToggled: false,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Validate checks a state that came from outside the process, typically a persisted record.
func (s State) Validate() error {
	if s.UpdatedAt < s.CreatedAt {
		return fmt.Errorf("updatedAt %d is before createdAt %d", s.UpdatedAt, s.CreatedAt)
	}
	return nil
}
