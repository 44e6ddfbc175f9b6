package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/giftwave/lib-offline/offline/log"
	"github.com/sony/gobreaker"
)

// Breaker guards one category of remote operation. It wraps sony/gobreaker
// and layers on per-call trip filtering, last-failure tracking and reset.
type Breaker struct {
	name     string
	cfg      Config
	logger   log.Logger
	onChange func(service string, from, to State)

	mu sync.RWMutex
	gb *gobreaker.CircuitBreaker

	failureMu   sync.Mutex
	lastFailure time.Time
}

// untrippedError marks an error the trip filter excluded from failure
// accounting. gobreaker records the call as a success; the original error is
// unwrapped before it reaches the caller.
type untrippedError struct {
	err error
}

func (e *untrippedError) Error() string { return e.err.Error() }
func (e *untrippedError) Unwrap() error { return e.err }

// New creates a standalone breaker. Most callers go through a Registry
// instead so call sites share one breaker per logical service.
func New(name string, cfg Config, logger log.Logger) *Breaker {
	breaker := &Breaker{
		name:   name,
		cfg:    cfg.normalize(),
		logger: log.OrNop(logger),
	}

	breaker.mu.Lock()
	breaker.gb = breaker.build()
	breaker.mu.Unlock()

	return breaker
}

func (b *Breaker) build() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        b.name,
		MaxRequests: b.cfg.SuccessThreshold,
		Timeout:     b.cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.cfg.FailureThreshold
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			b.handleStateChange(convertState(from), convertState(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}

			var untripped *untrippedError

			return errors.As(err, &untripped)
		},
	})
}

// Execute runs fn through the circuit. Every error counts toward tripping.
// The original error is always rethrown after bookkeeping; a rejected call
// returns *OpenStateError without invoking fn.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.execute(fn, func(error) bool { return true })
}

// ExecuteWithFilter runs fn through the circuit, counting a failure toward
// tripping only when filter returns true. A nil filter uses
// DefaultTripFilter (client-classified errors don't trip, everything else
// does).
func (b *Breaker) ExecuteWithFilter(fn func() (any, error), filter TripFilter) (any, error) {
	if filter == nil {
		filter = DefaultTripFilter
	}

	return b.execute(fn, filter)
}

func (b *Breaker) execute(fn func() (any, error), filter TripFilter) (any, error) {
	result, err := b.current().Execute(func() (any, error) {
		out, fnErr := fn()
		if fnErr != nil && !filter(fnErr) {
			return out, &untrippedError{err: fnErr}
		}

		return out, fnErr
	})

	if err == nil {
		return result, nil
	}

	var untripped *untrippedError
	if errors.As(err, &untripped) {
		return result, untripped.err
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return result, &OpenStateError{Service: b.name, LastFailure: b.LastFailure()}
	}

	return result, err
}

// State returns the current state.
func (b *Breaker) State() State {
	return convertState(b.current().State())
}

// Stats returns a snapshot of the breaker's counters.
func (b *Breaker) Stats() Stats {
	return Stats{
		Name:        b.name,
		State:       b.State(),
		Counts:      convertCounts(b.current().Counts()),
		LastFailure: b.LastFailure(),
	}
}

// LastFailure returns the instant the circuit last entered the open state,
// or the zero time if it never opened.
func (b *Breaker) LastFailure() time.Time {
	b.failureMu.Lock()
	defer b.failureMu.Unlock()

	return b.lastFailure
}

// Reset forces the circuit closed with zeroed counters by regenerating the
// underlying breaker with the same configuration.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.gb = b.build()
	b.mu.Unlock()

	b.failureMu.Lock()
	b.lastFailure = time.Time{}
	b.failureMu.Unlock()

	b.logger.Log(context.Background(), log.LevelInfo, "circuit breaker reset",
		log.String("service", b.name))
}

func (b *Breaker) current() *gobreaker.CircuitBreaker {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.gb
}

func (b *Breaker) handleStateChange(from, to State) {
	if to == StateOpen {
		b.failureMu.Lock()
		b.lastFailure = time.Now().UTC()
		b.failureMu.Unlock()
	}

	ctx := context.Background()
	fields := []log.Field{
		log.String("service", b.name),
		log.String("from", string(from)),
		log.String("to", string(to)),
	}

	switch to {
	case StateOpen:
		b.logger.Log(ctx, log.LevelError, "circuit breaker opened, requests will fast-fail", fields...)
	case StateHalfOpen:
		b.logger.Log(ctx, log.LevelInfo, "circuit breaker half-open, testing recovery", fields...)
	case StateClosed:
		b.logger.Log(ctx, log.LevelInfo, "circuit breaker closed, service healthy", fields...)
	default:
		b.logger.Log(ctx, log.LevelWarn, "circuit breaker state changed", fields...)
	}

	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

// statusCoder matches transport errors that carry an HTTP-style status code.
type statusCoder interface {
	StatusCode() int
}

// DefaultTripFilter ignores 4xx-class errors (the request was wrong, not the
// service) and caller cancellations; everything else, including timeouts and
// transport failures, counts toward tripping.
func DefaultTripFilter(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var coded statusCoder
	if errors.As(err, &coded) {
		code := coded.StatusCode()

		return code < 400 || code >= 500
	}

	return true
}
