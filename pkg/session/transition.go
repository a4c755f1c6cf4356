package session

import "time"

// Transition computes the next state for an action. The returned bool reports whether the
// state changed; callers use it to decide whether to persist and broadcast. The input
// state is never modified.
func Transition(state State, action Action, now time.Time) (State, bool) {
	switch a := action.(type) {
	case ToggleSwitch:
		next := state
		next.IsToggled = !state.IsToggled
		next.UpdatedAt = now.UnixMilli()
		// updatedAt must strictly increase even when two toggles land in the same millisecond
		if next.UpdatedAt <= state.UpdatedAt {
			next.UpdatedAt = state.UpdatedAt + 1
		}
		return next, true
	case InitializeSession:
		return NewState(a.SessionID, now), true
	case GetState:
		return state, false
	default:
		return state, false
	}
}
