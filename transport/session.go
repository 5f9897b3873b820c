package transport

import (
	"sync"
	"sync/atomic"
)

// SessionState is the connection state a substrate reports.
type SessionState int32

const (
	// SessionConnected means the substrate link is usable.
	SessionConnected SessionState = iota
	// SessionDisconnected means the substrate link is down. Sends fail
	// fast until the substrate reconnects.
	SessionDisconnected
)

func (s SessionState) String() string {
	if s == SessionConnected {
		return "connected"
	}
	return "disconnected"
}

// SessionWatcher is notified on every session state change.
type SessionWatcher func(state SessionState)

// Session tracks the substrate connection state and fans state changes out
// to watchers. Substrates mark the state from their driver callbacks; the
// network transport watches it to emit session-loss notices and to fail
// sends fast while disconnected.
type Session struct {
	state atomic.Int32

	mu       sync.Mutex
	watchers []SessionWatcher
}

// NewSession creates a session in the connected state. Substrates that only
// hand out a session after their driver connected can use it as-is.
func NewSession() *Session {
	return &Session{}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Connected reports whether the session is currently usable.
func (s *Session) Connected() bool {
	return s.State() == SessionConnected
}

// Watch registers a watcher for future state changes. Watchers run on the
// goroutine that marks the transition and must not block.
func (s *Session) Watch(w SessionWatcher) {
	if w == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, w)
}

// MarkConnected records a (re)connect and notifies watchers if the state
// actually changed.
func (s *Session) MarkConnected() {
	s.transition(SessionConnected)
}

// MarkDisconnected records a connection loss and notifies watchers if the
// state actually changed.
func (s *Session) MarkDisconnected() {
	s.transition(SessionDisconnected)
}

func (s *Session) transition(to SessionState) {
	if !s.state.CompareAndSwap(int32(1-to), int32(to)) {
		return
	}
	s.mu.Lock()
	watchers := make([]SessionWatcher, len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()
	for _, w := range watchers {
		w(to)
	}
}
