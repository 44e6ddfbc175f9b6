//go:build unit

package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/giftwave/lib-offline/offline/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreateReturnsSingleton(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(log.NewNop())

	first := registry.GetOrCreate("api", DefaultConfig())
	second := registry.GetOrCreate("api", PaymentConfig())

	assert.Same(t, first, second, "same name must share one breaker")
}

func TestRegistryService(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(log.NewNop())

	payment := registry.Service(ServicePayment)
	assert.Same(t, payment, registry.Service(ServicePayment))

	// Payment trips fastest: two failures open it.
	_, _ = payment.Execute(failing)
	_, _ = payment.Execute(failing)
	assert.Equal(t, StateOpen, registry.State(ServicePayment))
	assert.False(t, registry.IsHealthy(ServicePayment))
}

func TestRegistryExecuteUnknownService(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(log.NewNop())

	_, err := registry.Execute("never-created", succeeding)
	require.ErrorIs(t, err, ErrUnknownService)
}

func TestRegistryStateAndStatsUnknown(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(log.NewNop())

	assert.Equal(t, StateUnknown, registry.State("ghost"))

	_, ok := registry.Stats("ghost")
	assert.False(t, ok)
}

func TestRegistryResetAll(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(log.NewNop())

	for _, service := range []string{"a", "b"} {
		breaker := registry.GetOrCreate(service, Config{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute})
		_, _ = breaker.Execute(failing)
		require.Equal(t, StateOpen, breaker.State())
	}

	registry.ResetAll()

	assert.Equal(t, StateClosed, registry.State("a"))
	assert.Equal(t, StateClosed, registry.State("b"))
}

func TestRegistryNotifiesListeners(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(log.NewNop())

	var (
		mu          sync.Mutex
		transitions []State
	)

	done := make(chan struct{})

	registry.RegisterStateChangeListener(StateChangeListenerFunc(func(service string, _, to State) {
		mu.Lock()
		defer mu.Unlock()

		assert.Equal(t, "flaky", service)
		transitions = append(transitions, to)
		close(done)
	}))

	breaker := registry.GetOrCreate("flaky", Config{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute})
	_, _ = breaker.Execute(failing)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener was not notified")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []State{StateOpen}, transitions)
}

func TestRegistryNilListenerIgnored(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(log.NewNop())
	registry.RegisterStateChangeListener(nil)

	breaker := registry.GetOrCreate("x", Config{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute})
	_, _ = breaker.Execute(failing)
}
