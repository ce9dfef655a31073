package mcp

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// SessionState is the handshake state of a session.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateInitialized
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// Session tracks one client connection. It starts Uninitialized and moves to
// Initialized exactly once, on the initialized notification.
type Session struct {
	ID          string
	initialized atomic.Bool
}

// NewSession returns an uninitialized session with a fresh identifier.
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// State reports the current handshake state.
func (s *Session) State() SessionState {
	if s.initialized.Load() {
		return StateInitialized
	}
	return StateUninitialized
}

// MarkInitialized moves the session to Initialized. It reports whether this
// call performed the transition.
func (s *Session) MarkInitialized() bool {
	return s.initialized.CompareAndSwap(false, true)
}
