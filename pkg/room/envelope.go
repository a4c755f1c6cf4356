package room

import (
	"encoding/json"

	"github.com/astromechza/toggle-rooms/pkg/session"
)

const TypeStateUpdate = "state_update"

// Envelope is the only server to client message. The join snapshot leaves Action and
// FromUserID empty and carries the joining connection's id in UserID.
type Envelope struct {
	Type       string          `json:"type"`
	State      session.State   `json:"state"`
	Action     json.RawMessage `json:"action,omitempty"`
	FromUserID string          `json:"fromUserId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

func snapshotEnvelope(state session.State, connID string, timestamp int64) Envelope {
	return Envelope{
		Type:      TypeStateUpdate,
		State:     state,
		UserID:    connID,
		Timestamp: timestamp,
	}
}

func updateEnvelope(state session.State, action session.Action, fromConnID string, timestamp int64) (Envelope, error) {
	rawAction, err := session.MarshalAction(action)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:       TypeStateUpdate,
		State:      state,
		Action:     rawAction,
		FromUserID: fromConnID,
		Timestamp:  timestamp,
	}, nil
}
