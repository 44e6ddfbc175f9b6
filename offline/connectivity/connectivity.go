// Package connectivity abstracts network reachability for the offline queue:
// a Provider answers "are we online right now", and a Watcher polls one and
// fires a callback when the link comes back.
package connectivity

import (
	"context"
	"sync"
)

// State is a point-in-time connectivity snapshot.
//
// Connected means a link-level connection exists; InternetReachable means
// traffic actually reaches the wider internet. A captive portal is typically
// Connected but not InternetReachable.
type State struct {
	Connected         bool `json:"connected"`
	InternetReachable bool `json:"internetReachable"`
}

// Online reports whether the device is considered usable for sync. A link
// without confirmed internet reachability is conservatively treated as
// offline.
func (s State) Online() bool {
	return s.Connected && s.InternetReachable
}

// Provider answers connectivity queries.
type Provider interface {
	Fetch(ctx context.Context) (State, error)
}

// Static is a Provider that returns a fixed, swappable state. Used in tests
// and as the default when no real provider is wired.
type Static struct {
	mu    sync.RWMutex
	state State
}

var _ Provider = (*Static)(nil)

// NewStatic creates a Static provider reporting state.
func NewStatic(state State) *Static {
	return &Static{state: state}
}

// AlwaysOnline returns a Static provider that reports full connectivity.
func AlwaysOnline() *Static {
	return NewStatic(State{Connected: true, InternetReachable: true})
}

// Fetch returns the current fixed state.
func (s *Static) Fetch(_ context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state, nil
}

// Set swaps the reported state.
func (s *Static) Set(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
}
