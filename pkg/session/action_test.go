package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAction_Valid(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Action
	}{
		{"toggle", `{"type":"TOGGLE_SWITCH","payload":{"userId":"user-123"}}`, ToggleSwitch{UserID: "user-123"}},
		{"initialize", `{"type":"INITIALIZE_SESSION","payload":{"sessionId":"session-123"}}`, InitializeSession{SessionID: "session-123"}},
		{"get state", `{"type":"GET_STATE","payload":{"userId":"user-123"}}`, GetState{UserID: "user-123"}},
		{"empty user id", `{"type":"TOGGLE_SWITCH","payload":{"userId":""}}`, ToggleSwitch{UserID: ""}},
		{"extra payload keys", `{"type":"GET_STATE","payload":{"userId":"u","color":"red"}}`, GetState{UserID: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := ParseAction([]byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.expected, action)
		})
	}
}

func TestParseAction_Malformed(t *testing.T) {
	for _, raw := range []string{``, `{`, `not json`, `{"type":"TOGGLE_SWITCH",}`} {
		_, err := ParseAction([]byte(raw))
		require.ErrorIs(t, err, ErrMalformedMessage, raw)
	}
}

func TestParseAction_SchemaViolation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown type", `{"type":"INVALID_ACTION","payload":{"userId":"user-123"}}`},
		{"missing type", `{"payload":{"userId":"user-123"}}`},
		{"numeric type", `{"type":5,"payload":{"userId":"user-123"}}`},
		{"missing payload", `{"type":"TOGGLE_SWITCH"}`},
		{"null payload", `{"type":"TOGGLE_SWITCH","payload":null}`},
		{"string payload", `{"type":"TOGGLE_SWITCH","payload":"user-123"}`},
		{"invalid payload field", `{"type":"TOGGLE_SWITCH","payload":{"invalidField":"value"}}`},
		{"toggle with session id", `{"type":"TOGGLE_SWITCH","payload":{"sessionId":"room-1"}}`},
		{"initialize with user id", `{"type":"INITIALIZE_SESSION","payload":{"userId":"user-123"}}`},
		{"user id not a string", `{"type":"GET_STATE","payload":{"userId":42}}`},
		{"upper case keys", `{"TYPE":"TOGGLE_SWITCH","PAYLOAD":{"USERID":"A"}}`},
		{"title case user id", `{"type":"TOGGLE_SWITCH","payload":{"UserId":"A"}}`},
		{"lower case session id", `{"type":"INITIALIZE_SESSION","payload":{"sessionid":"x"}}`},
		{"upper case type key", `{"Type":"GET_STATE","payload":{"userId":"A"}}`},
		{"null user id", `{"type":"GET_STATE","payload":{"userId":null}}`},
		{"array", `[]`},
		{"null", `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := ParseAction([]byte(tt.raw))
			require.ErrorIs(t, err, ErrSchemaViolation)
			require.NotErrorIs(t, err, ErrMalformedMessage)
			require.Nil(t, action)
		})
	}
}

func TestMarshalAction_RoundTrip(t *testing.T) {
	req := require.New(t)
	for _, action := range []Action{
		ToggleSwitch{UserID: "A"},
		InitializeSession{SessionID: "room-1"},
		GetState{UserID: "B"},
	} {
		raw, err := MarshalAction(action)
		req.NoError(err)

		parsed, err := ParseAction(raw)
		req.NoError(err)
		req.Equal(action, parsed)
	}
}

func TestMarshalAction_WireShape(t *testing.T) {
	req := require.New(t)

	raw, err := MarshalAction(InitializeSession{SessionID: "room-1"})
	req.NoError(err)

	var decoded map[string]any
	req.NoError(json.Unmarshal(raw, &decoded))
	req.Equal(map[string]any{
		"type":    "INITIALIZE_SESSION",
		"payload": map[string]any{"sessionId": "room-1"},
	}, decoded)

	_, err = MarshalAction(nil)
	req.Error(err)
}
