package core

import "sync/atomic"

// SessionID identifies one live transport, not the user behind it.
type SessionID string

type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateCell holds a session state that only moves forward.
type StateCell struct {
	v atomic.Int32
}

func (c *StateCell) Load() SessionState { return SessionState(c.v.Load()) }

// Advance moves to next unless the cell is already at or beyond it.
func (c *StateCell) Advance(next SessionState) bool {
	for {
		cur := c.v.Load()
		if cur >= int32(next) {
			return false
		}
		if c.v.CompareAndSwap(cur, int32(next)) {
			return true
		}
	}
}
