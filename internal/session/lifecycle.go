// Package session connects the avatar to its room: credential fetch, the
// paired user and avatar connections, inbound track selection and the
// connection lifecycle.
package session

import "sync"

// State is the connection lifecycle state
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateLive
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Lifecycle guards the connection state machine. Legal transitions:
// idle -> connecting -> live, connecting/live -> error, and error ->
// connecting on an explicit retry. There is no automatic reconnect; a
// failed session stays in error until the operator acts.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	status   string
	onChange func(State, string)
}

// NewLifecycle creates a Lifecycle in the idle state. onChange fires on
// every transition with the new state and a status string; it may be nil.
func NewLifecycle(onChange func(State, string)) *Lifecycle {
	return &Lifecycle{state: StateIdle, status: "idle", onChange: onChange}
}

// State returns the current state
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Status returns the last status string
func (l *Lifecycle) Status() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Begin moves to connecting and reports whether the caller owns the
// attempt. While a session is connecting or live further calls are no-ops,
// so a double-click cannot spawn a second session pair.
func (l *Lifecycle) Begin(status string) bool {
	l.mu.Lock()
	if l.state == StateConnecting || l.state == StateLive {
		l.mu.Unlock()
		return false
	}
	l.set(StateConnecting, status)
	return true
}

// Live marks a successful connect. Only valid while connecting.
func (l *Lifecycle) Live(status string) bool {
	l.mu.Lock()
	if l.state != StateConnecting {
		l.mu.Unlock()
		return false
	}
	l.set(StateLive, status)
	return true
}

// Fail records an error from a connecting or live session
func (l *Lifecycle) Fail(status string) bool {
	l.mu.Lock()
	if l.state != StateConnecting && l.state != StateLive {
		l.mu.Unlock()
		return false
	}
	l.set(StateError, status)
	return true
}

// Reset returns to idle after a deliberate disconnect
func (l *Lifecycle) Reset(status string) {
	l.mu.Lock()
	l.set(StateIdle, status)
}

// set transitions and fires the callback outside the lock. Callers hold
// l.mu; set releases it.
func (l *Lifecycle) set(state State, status string) {
	l.state = state
	l.status = status
	cb := l.onChange
	l.mu.Unlock()

	if cb != nil {
		cb(state, status)
	}
}
