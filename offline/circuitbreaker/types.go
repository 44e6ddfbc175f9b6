package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

// State represents circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Counts represents circuit breaker statistics.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Stats is a snapshot of one breaker for operational introspection.
type Stats struct {
	Name        string
	State       State
	Counts      Counts
	LastFailure time.Time
}

// TripFilter classifies an execution error: true means the error counts
// toward tripping the circuit, false means it is the caller's problem
// (e.g. a validation rejection) and must not poison the breaker.
type TripFilter func(err error) bool

// StateChangeListener is notified when a circuit breaker changes state.
type StateChangeListener interface {
	OnStateChange(service string, from State, to State)
}

// StateChangeListenerFunc adapts a function to StateChangeListener.
type StateChangeListenerFunc func(service string, from State, to State)

func (fn StateChangeListenerFunc) OnStateChange(service string, from State, to State) {
	if fn != nil {
		fn(service, from, to)
	}
}

func convertState(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}

func convertCounts(counts gobreaker.Counts) Counts {
	return Counts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}
