//go:build unit

package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/giftwave/lib-offline/offline/connectivity"
	"github.com/giftwave/lib-offline/offline/log"
	"github.com/giftwave/lib-offline/offline/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRemote = errors.New("remote rejected")

func newTestQueue(t *testing.T, provider connectivity.Provider) (*Queue, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()

	queue, err := New(store, provider, log.NewNop())
	require.NoError(t, err)

	return queue, store
}

func mustAdd(t *testing.T, queue *Queue, actionType string, maxRetries int) QueuedAction {
	t.Helper()

	action, err := queue.AddWithRetries(context.Background(), actionType, json.RawMessage(`{}`), maxRetries)
	require.NoError(t, err)

	return action
}

func TestNewValidatesDependencies(t *testing.T) {
	t.Parallel()

	_, err := New(nil, connectivity.AlwaysOnline(), log.NewNop())
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = New(storage.NewMemoryStore(), nil, log.NewNop())
	assert.ErrorIs(t, err, ErrConnectivityRequired)
}

func TestAddValidatesAction(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	_, err := queue.Add(ctx, "  ", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrActionTypeRequired)

	_, err = queue.Add(ctx, "send-gift", json.RawMessage(`{broken`))
	assert.ErrorIs(t, err, ErrPayloadNotJSON)

	_, err = queue.Add(ctx, "send-gift", nil)
	assert.ErrorIs(t, err, ErrPayloadNotJSON)
}

func TestAddPersistsBeforeReturning(t *testing.T) {
	t.Parallel()

	queue, store := newTestQueue(t, connectivity.AlwaysOnline())
	action := mustAdd(t, queue, "send-gift", DefaultMaxRetries)

	raw, err := store.GetItem(context.Background(), DefaultPendingKey)
	require.NoError(t, err)

	var persisted []QueuedAction
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, action.ID, persisted[0].ID)
	assert.Equal(t, "send-gift", persisted[0].ActionType)
	assert.Equal(t, DefaultMaxRetries, persisted[0].MaxRetries)
}

func TestProcessQueuePreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	var seen []string

	require.NoError(t, queue.RegisterHandler("step", func(_ context.Context, payload json.RawMessage) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}

		seen = append(seen, body.Name)

		return nil
	}))

	for _, name := range []string{"a", "b", "c"} {
		_, err := queue.Add(ctx, "step", json.RawMessage(`{"name":"`+name+`"}`))
		require.NoError(t, err)
	}

	result := queue.ProcessQueue(ctx)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, []string{"a", "b", "c"}, seen)

	status, err := queue.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{}, status)
}

func TestProcessQueueOfflineLeavesQueueUntouched(t *testing.T) {
	t.Parallel()

	provider := connectivity.NewStatic(connectivity.State{Connected: true, InternetReachable: false})
	queue, _ := newTestQueue(t, provider)
	ctx := context.Background()

	invoked := false
	require.NoError(t, queue.RegisterHandler("send-gift", func(context.Context, json.RawMessage) error {
		invoked = true
		return nil
	}))

	mustAdd(t, queue, "send-gift", DefaultMaxRetries)

	result := queue.ProcessQueue(ctx)
	assert.False(t, result.Success)
	assert.Equal(t, []string{NoNetworkMessage}, result.Errors)
	assert.False(t, invoked)

	status, err := queue.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Pending)
}

func TestProcessQueueRetriesUntilBudgetExhausted(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	attempts := 0
	require.NoError(t, queue.RegisterHandler("flaky", func(context.Context, json.RawMessage) error {
		attempts++
		return errRemote
	}))

	mustAdd(t, queue, "flaky", 2)

	// Two failed drains keep the action pending with an incremented count.
	for i := range 2 {
		result := queue.ProcessQueue(ctx)
		assert.False(t, result.Success, "drain %d", i+1)
		assert.Equal(t, 1, result.Failed)

		status, err := queue.QueueStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, status.Pending, "drain %d", i+1)
		assert.Zero(t, status.Failed, "drain %d", i+1)
	}

	// Third failure exceeds MaxRetries=2 and demotes the action.
	result := queue.ProcessQueue(ctx)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"flaky: " + errRemote.Error()}, result.Errors)
	assert.Equal(t, 3, attempts)

	status, err := queue.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Pending)
	assert.Equal(t, 1, status.Failed)
}

func TestProcessQueueZeroRetriesDemotesImmediately(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	healthy := false
	require.NoError(t, queue.RegisterHandler("upload", func(context.Context, json.RawMessage) error {
		if healthy {
			return nil
		}

		return errRemote
	}))

	mustAdd(t, queue, "upload", 0)

	result := queue.ProcessQueue(ctx)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Failed)

	status, err := queue.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Failed)

	// Manual retry drains the failed partition once the backend recovers.
	healthy = true
	retry := queue.RetryFailed(ctx)
	assert.True(t, retry.Success)
	assert.Equal(t, 1, retry.Processed)

	status, err = queue.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{}, status)
}

func TestProcessQueueFailureDoesNotAbortPass(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	require.NoError(t, queue.RegisterHandler("good", func(context.Context, json.RawMessage) error { return nil }))
	require.NoError(t, queue.RegisterHandler("bad", func(context.Context, json.RawMessage) error { return errRemote }))

	mustAdd(t, queue, "good", DefaultMaxRetries)
	mustAdd(t, queue, "bad", 0)
	mustAdd(t, queue, "good", DefaultMaxRetries)

	result := queue.ProcessQueue(ctx)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
}

func TestProcessQueueRetainsActionsWithoutHandler(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	mustAdd(t, queue, "unmapped", DefaultMaxRetries)

	result := queue.ProcessQueue(ctx)
	assert.True(t, result.Success)
	assert.Zero(t, result.Processed)
	assert.Zero(t, result.Failed)

	status, err := queue.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Pending)
}

func TestProcessQueueRecoversPanickingHandler(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	require.NoError(t, queue.RegisterHandler("boom", func(context.Context, json.RawMessage) error {
		panic("handler exploded")
	}))

	mustAdd(t, queue, "boom", 0)

	result := queue.ProcessQueue(ctx)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "handler exploded")
}

func TestProcessQueueSingleDrainAtATime(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, queue.RegisterHandler("slow", func(context.Context, json.RawMessage) error {
		close(entered)
		<-release

		return nil
	}))

	mustAdd(t, queue, "slow", DefaultMaxRetries)

	var wg sync.WaitGroup

	wg.Add(1)

	var first Result

	go func() {
		defer wg.Done()

		first = queue.ProcessQueue(ctx)
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("drain never started")
	}

	// Overlapping call is a no-op: nothing processed, nothing failed.
	second := queue.ProcessQueue(ctx)
	assert.True(t, second.Success)
	assert.Zero(t, second.Processed)
	assert.Zero(t, second.Failed)

	close(release)
	wg.Wait()

	assert.True(t, first.Success)
	assert.Equal(t, 1, first.Processed)
}

func TestRetryFailedKeepsStillFailingActions(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	require.NoError(t, queue.RegisterHandler("doomed", func(context.Context, json.RawMessage) error {
		return errRemote
	}))

	mustAdd(t, queue, "doomed", 0)

	result := queue.ProcessQueue(ctx)
	require.Equal(t, 1, result.Failed)

	retry := queue.RetryFailed(ctx)
	assert.False(t, retry.Success)
	assert.Equal(t, 1, retry.Failed)

	status, err := queue.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Failed)
}

func TestRetryFailedOfflineShortCircuits(t *testing.T) {
	t.Parallel()

	provider := connectivity.NewStatic(connectivity.State{})
	queue, _ := newTestQueue(t, provider)

	result := queue.RetryFailed(context.Background())
	assert.False(t, result.Success)
	assert.Equal(t, []string{NoNetworkMessage}, result.Errors)
}

func TestClearAllWipesBothPartitions(t *testing.T) {
	t.Parallel()

	queue, _ := newTestQueue(t, connectivity.AlwaysOnline())
	ctx := context.Background()

	require.NoError(t, queue.RegisterHandler("doomed", func(context.Context, json.RawMessage) error {
		return errRemote
	}))

	mustAdd(t, queue, "doomed", 0)
	require.Equal(t, 1, queue.ProcessQueue(ctx).Failed)
	mustAdd(t, queue, "doomed", DefaultMaxRetries)

	require.NoError(t, queue.ClearAll(ctx))

	status, err := queue.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{}, status)
}

func TestQueueStateSurvivesRestart(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	ctx := context.Background()

	first, err := New(store, connectivity.AlwaysOnline(), log.NewNop())
	require.NoError(t, err)

	action, err := first.Add(ctx, "send-gift", json.RawMessage(`{"to":"ana"}`))
	require.NoError(t, err)

	// A fresh queue over the same store sees and drains the same action.
	second, err := New(store, connectivity.AlwaysOnline(), log.NewNop())
	require.NoError(t, err)

	var drainedID string

	require.NoError(t, second.RegisterHandler("send-gift", func(context.Context, json.RawMessage) error {
		drainedID = action.ID.String()
		return nil
	}))

	result := second.ProcessQueue(ctx)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, action.ID.String(), drainedID)
}
