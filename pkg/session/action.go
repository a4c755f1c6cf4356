package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	TypeToggleSwitch      = "TOGGLE_SWITCH"
	TypeInitializeSession = "INITIALIZE_SESSION"
	TypeGetState          = "GET_STATE"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrSchemaViolation  = errors.New("schema violation")
)

// Action is a validated request against a room's state. The set of variants is closed.
type Action interface {
	Type() string
	isAction()
}

// ToggleSwitch flips IsToggled.
type ToggleSwitch struct {
	UserID string
}

// InitializeSession discards the current state and starts a fresh one keyed by SessionID.
type InitializeSession struct {
	SessionID string
}

// GetState is a read-only request.
type GetState struct {
	UserID string
}

func (ToggleSwitch) Type() string      { return TypeToggleSwitch }
func (InitializeSession) Type() string { return TypeInitializeSession }
func (GetState) Type() string          { return TypeGetState }

func (ToggleSwitch) isAction()      {}
func (InitializeSession) isAction() {}
func (GetState) isAction()          {}

func (a ToggleSwitch) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAction{Type: a.Type(), Payload: userPayload{UserID: &a.UserID}})
}

func (a InitializeSession) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAction{Type: a.Type(), Payload: sessionPayload{SessionID: &a.SessionID}})
}

func (a GetState) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAction{Type: a.Type(), Payload: userPayload{UserID: &a.UserID}})
}

var validate = validator.New()

type inboundAction struct {
	Type    string          `json:"type" validate:"required,oneof=TOGGLE_SWITCH INITIALIZE_SESSION GET_STATE"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type wireAction struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Pointers let validation tell an absent field from an empty string.
type userPayload struct {
	UserID *string `json:"userId" validate:"required"`
}

type sessionPayload struct {
	SessionID *string `json:"sessionId" validate:"required"`
}

// ParseAction decodes and validates one inbound action envelope. Errors wrap
// ErrMalformedMessage when raw is not JSON and ErrSchemaViolation when it does not
// match exactly one action variant. Keys are matched by exact spelling.
func ParseAction(raw []byte) (Action, error) {
	if !json.Valid(raw) {
		return nil, ErrMalformedMessage
	}

	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	var in inboundAction
	if err := decodeField(fields, "type", &in.Type); err != nil {
		return nil, err
	}
	in.Payload = fields["payload"]
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	switch in.Type {
	case TypeToggleSwitch, TypeGetState:
		var p userPayload
		if err := decodePayload(in.Payload, "userId", &p.UserID, &p); err != nil {
			return nil, err
		}
		if in.Type == TypeGetState {
			return GetState{UserID: *p.UserID}, nil
		}
		return ToggleSwitch{UserID: *p.UserID}, nil
	case TypeInitializeSession:
		var p sessionPayload
		if err := decodePayload(in.Payload, "sessionId", &p.SessionID, &p); err != nil {
			return nil, err
		}
		return InitializeSession{SessionID: *p.SessionID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", ErrSchemaViolation, in.Type)
	}
}

// MarshalAction encodes an action as its wire envelope.
func MarshalAction(action Action) ([]byte, error) {
	if action == nil {
		return nil, errors.New("nil action")
	}
	return json.Marshal(action)
}

// decodeObject splits a JSON object into its raw members so keys can be looked up by
// exact spelling.
func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}
	return fields, nil
}

// decodeField decodes fields[key] into into. An absent key leaves into untouched.
func decodeField(fields map[string]json.RawMessage, key string, into any) error {
	value, ok := fields[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(value, into); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSchemaViolation, key, err)
	}
	return nil
}

func decodePayload(raw json.RawMessage, key string, field any, payload any) error {
	fields, err := decodeObject(raw)
	if err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	if err := decodeField(fields, key, field); err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: payload: %w", ErrSchemaViolation, err)
	}
	return nil
}
