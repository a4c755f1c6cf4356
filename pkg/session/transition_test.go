package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedState() State {
	return State{ID: "test-session", IsToggled: false, CreatedAt: 1000, UpdatedAt: 1000}
}

func TestNewState(t *testing.T) {
	req := require.New(t)
	now := time.UnixMilli(5000)

	state := NewState("test-session-123", now)

	req.Equal("test-session-123", state.ID)
	req.False(state.IsToggled)
	req.Equal(int64(5000), state.CreatedAt)
	req.Equal(state.CreatedAt, state.UpdatedAt)
	req.NoError(state.Validate())
}

func TestTransition_ToggleSwitch(t *testing.T) {
	req := require.New(t)
	initial := fixedState()

	next, changed := Transition(initial, ToggleSwitch{UserID: "user-123"}, time.UnixMilli(2000))

	req.True(changed)
	req.True(next.IsToggled)
	req.Equal(initial.ID, next.ID)
	req.Equal(initial.CreatedAt, next.CreatedAt)
	req.Equal(int64(2000), next.UpdatedAt)

	// The argument is a value, but make sure nothing leaked back into it
	req.False(initial.IsToggled)
	req.Equal(int64(1000), initial.UpdatedAt)
}

func TestTransition_ToggleSwitch_BackToFalse(t *testing.T) {
	req := require.New(t)
	toggled := fixedState()
	toggled.IsToggled = true

	next, changed := Transition(toggled, ToggleSwitch{UserID: "user-123"}, time.UnixMilli(2000))

	req.True(changed)
	req.False(next.IsToggled)
}

func TestTransition_ToggleSwitch_Involution(t *testing.T) {
	req := require.New(t)
	initial := fixedState()
	now := time.UnixMilli(1000)

	// Given two toggles in the very same millisecond as the state itself
	once, _ := Transition(initial, ToggleSwitch{UserID: "a"}, now)
	twice, _ := Transition(once, ToggleSwitch{UserID: "b"}, now)

	// Then the value is back and updatedAt still moved forward each time
	req.Equal(initial.IsToggled, twice.IsToggled)
	req.Greater(once.UpdatedAt, initial.UpdatedAt)
	req.Greater(twice.UpdatedAt, once.UpdatedAt)
	req.NoError(twice.Validate())
}

func TestTransition_ToggleSwitch_ClockBehindState(t *testing.T) {
	req := require.New(t)
	initial := fixedState()

	next, _ := Transition(initial, ToggleSwitch{UserID: "a"}, time.UnixMilli(10))

	req.Equal(initial.UpdatedAt+1, next.UpdatedAt)
}

func TestTransition_InitializeSession(t *testing.T) {
	for _, prior := range []State{
		fixedState(),
		{ID: "other", IsToggled: true, CreatedAt: 1, UpdatedAt: 999},
		{},
	} {
		req := require.New(t)
		now := time.UnixMilli(7000)

		next, changed := Transition(prior, InitializeSession{SessionID: "new-session-456"}, now)

		req.True(changed)
		req.Equal(State{ID: "new-session-456", IsToggled: false, CreatedAt: 7000, UpdatedAt: 7000}, next)
	}
}

func TestTransition_GetState(t *testing.T) {
	req := require.New(t)
	initial := fixedState()
	initial.IsToggled = true

	next, changed := Transition(initial, GetState{UserID: "user-123"}, time.UnixMilli(9000))

	req.False(changed)
	req.Equal(initial, next)
}

type unknownAction struct{}

func (unknownAction) Type() string { return "UNKNOWN" }
func (unknownAction) isAction()    {}

func TestTransition_UnknownAction(t *testing.T) {
	req := require.New(t)
	initial := fixedState()

	next, changed := Transition(initial, unknownAction{}, time.UnixMilli(9000))

	req.False(changed)
	req.Equal(initial, next)
}

func TestTransition_Deterministic(t *testing.T) {
	req := require.New(t)
	now := time.UnixMilli(4242)
	actions := []Action{
		ToggleSwitch{UserID: "a"},
		InitializeSession{SessionID: "s"},
		GetState{UserID: "a"},
	}
	for _, action := range actions {
		first, firstChanged := Transition(fixedState(), action, now)
		second, secondChanged := Transition(fixedState(), action, now)
		req.Equal(first, second, action.Type())
		req.Equal(firstChanged, secondChanged, action.Type())
	}
}

func TestState_Validate(t *testing.T) {
	req := require.New(t)
	req.Error(State{ID: "x", CreatedAt: 10, UpdatedAt: 9}.Validate())
	req.NoError(State{ID: "x", CreatedAt: 10, UpdatedAt: 10}.Validate())
}
