package circuitbreaker

import (
	"context"
	"fmt"
	"sync"

	"github.com/giftwave/lib-offline/offline/log"
	"github.com/giftwave/lib-offline/offline/runtime"
)

// Registry maps a logical service name to a lazily-created singleton breaker
// so every call site wrapping the same backend shares one circuit.
type Registry struct {
	mu        sync.RWMutex
	breakers  map[string]*Breaker
	listeners []StateChangeListener
	logger    log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger log.Logger) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		logger:   log.OrNop(logger),
	}
}

// GetOrCreate returns the existing breaker for service or creates one with
// cfg. The config of an existing breaker is never changed.
func (r *Registry) GetOrCreate(service string, cfg Config) *Breaker {
	r.mu.RLock()
	breaker, exists := r.breakers[service]
	r.mu.RUnlock()

	if exists {
		return breaker
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock.
	if breaker, exists = r.breakers[service]; exists {
		return breaker
	}

	breaker = New(service, cfg, r.logger)
	breaker.onChange = r.notifyStateChange
	r.breakers[service] = breaker

	r.logger.Log(context.Background(), log.LevelInfo, "created circuit breaker",
		log.String("service", service))

	return breaker
}

// Service returns the shared breaker for a well-known service name (api,
// auth, payment, upload, realtime), creating it with its pre-tuned config on
// first use. Unknown names get DefaultConfig.
func (r *Registry) Service(service string) *Breaker {
	return r.GetOrCreate(service, ServiceConfig(service))
}

// Execute runs fn through the named breaker. The breaker must already exist;
// use Service or GetOrCreate at the call site that owns the configuration.
func (r *Registry) Execute(service string, fn func() (any, error)) (any, error) {
	breaker, ok := r.get(service)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}

	return breaker.Execute(fn)
}

// State returns the current state of the named breaker, or StateUnknown when
// it does not exist.
func (r *Registry) State(service string) State {
	breaker, ok := r.get(service)
	if !ok {
		return StateUnknown
	}

	return breaker.State()
}

// Stats returns a snapshot for the named breaker.
func (r *Registry) Stats(service string) (Stats, bool) {
	breaker, ok := r.get(service)
	if !ok {
		return Stats{}, false
	}

	return breaker.Stats(), true
}

// IsHealthy reports whether the named breaker is closed. Open and half-open
// both count as unhealthy: callers should prefer cached data until the
// circuit fully recovers.
func (r *Registry) IsHealthy(service string) bool {
	return r.State(service) == StateClosed
}

// Reset forces the named breaker closed. Unknown names are a no-op.
func (r *Registry) Reset(service string) {
	if breaker, ok := r.get(service); ok {
		breaker.Reset()
	}
}

// ResetAll forces every registered breaker closed. Operational escape hatch
// after a known backend recovery.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, breaker := range r.breakers {
		breakers = append(breakers, breaker)
	}
	r.mu.RUnlock()

	for _, breaker := range breakers {
		breaker.Reset()
	}
}

// RegisterStateChangeListener registers a listener for state change
// notifications across all breakers in the registry.
func (r *Registry) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		r.logger.Log(context.Background(), log.LevelWarn,
			"attempted to register a nil state change listener")

		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, listener)
}

func (r *Registry) get(service string) (*Breaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	breaker, ok := r.breakers[service]

	return breaker, ok
}

func (r *Registry) notifyStateChange(service string, from, to State) {
	r.mu.RLock()
	listeners := make([]StateChangeListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, listener := range listeners {
		// Notify off the breaker's execution path so a slow or panicking
		// listener cannot block circuit transitions.
		l := listener
		runtime.SafeGo(context.Background(), r.logger, "circuitbreaker", "state_change_listener", func() {
			l.OnStateChange(service, from, to)
		})
	}
}
