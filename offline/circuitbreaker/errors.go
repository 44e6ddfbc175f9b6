package circuitbreaker

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrOpen is the sentinel matched by errors.Is when a call is rejected
	// because the circuit is not accepting requests.
	ErrOpen = errors.New("circuit breaker is open")

	// ErrUnknownService is returned by registry operations on a service name
	// that was never created.
	ErrUnknownService = errors.New("circuit breaker not found for service")
)

// OpenStateError is returned when the wrapped function was not invoked
// because the circuit rejected the call. Callers can branch on it to serve
// cached data instead of treating it as a request failure.
type OpenStateError struct {
	Service     string
	LastFailure time.Time
}

func (e *OpenStateError) Error() string {
	return fmt.Sprintf("service %s is currently unavailable (circuit breaker open)", e.Service)
}

// Unwrap lets errors.Is(err, ErrOpen) match.
func (e *OpenStateError) Unwrap() error {
	return ErrOpen
}

// IsOpen reports whether err is a blocked-circuit rejection.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen)
}
