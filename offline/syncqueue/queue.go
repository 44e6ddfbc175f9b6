package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/giftwave/lib-offline/offline/connectivity"
	"github.com/giftwave/lib-offline/offline/log"
	"github.com/giftwave/lib-offline/offline/runtime"
	"github.com/giftwave/lib-offline/offline/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Default storage slots. Each holds one JSON array with the whole partition.
const (
	DefaultPendingKey = "offline-queue-pending"
	DefaultFailedKey  = "offline-queue-failed"
)

// Queue is the durable, ordered record of user actions awaiting replay.
// Construct one per application; every operation re-reads persisted state so
// a restarted process observes consistent on-disk state.
type Queue struct {
	store    storage.Store
	provider connectivity.Provider
	handlers *HandlerRegistry
	logger   log.Logger
	tracer   trace.Tracer

	pendingKey string
	failedKey  string

	// mu serializes every read-modify-write against the two storage slots.
	// The original single-threaded runtime got this ordering for free; here
	// it is explicit.
	mu       sync.Mutex
	draining atomic.Bool
}

// Result captures one drain pass outcome. Partial failure is structural, not
// exceptional: per-item errors are aggregated here instead of thrown.
type Result struct {
	Success   bool     `json:"success"`
	Processed int      `json:"processedCount"`
	Failed    int      `json:"failedCount"`
	Errors    []string `json:"errors,omitempty"`
}

// Status summarizes queue depth across both partitions.
type Status struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Option customizes a Queue.
type Option func(*Queue)

// WithTracer attaches an OpenTelemetry tracer to drain cycles.
func WithTracer(tracer trace.Tracer) Option {
	return func(q *Queue) {
		if tracer != nil {
			q.tracer = tracer
		}
	}
}

// WithStorageKeys overrides the storage slots, e.g. to namespace per account.
func WithStorageKeys(pendingKey, failedKey string) Option {
	return func(q *Queue) {
		if pendingKey != "" {
			q.pendingKey = pendingKey
		}

		if failedKey != "" {
			q.failedKey = failedKey
		}
	}
}

// New creates a queue over store, gated by provider.
func New(store storage.Store, provider connectivity.Provider, logger log.Logger, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	if provider == nil {
		return nil, ErrConnectivityRequired
	}

	queue := &Queue{
		store:      store,
		provider:   provider,
		handlers:   NewHandlerRegistry(),
		logger:     log.OrNop(logger),
		tracer:     noop.NewTracerProvider().Tracer("offline.noop"),
		pendingKey: DefaultPendingKey,
		failedKey:  DefaultFailedKey,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(queue)
		}
	}

	return queue, nil
}

// RegisterHandler binds handler to actionType. One handler per type; the
// last registration wins.
func (q *Queue) RegisterHandler(actionType string, handler Handler) error {
	return q.handlers.Register(actionType, handler)
}

// Add durably appends a user action with the default retry budget and
// returns immediately; nothing is executed until the next drain.
func (q *Queue) Add(ctx context.Context, actionType string, payload json.RawMessage) (QueuedAction, error) {
	return q.AddWithRetries(ctx, actionType, payload, DefaultMaxRetries)
}

// AddWithRetries is Add with an explicit per-action retry budget.
//
// Unlike reads, a storage failure here propagates: silently pretending the
// add succeeded would lose the record of user intent.
func (q *Queue) AddWithRetries(ctx context.Context, actionType string, payload json.RawMessage, maxRetries int) (QueuedAction, error) {
	action, err := NewQueuedAction(actionType, payload, maxRetries)
	if err != nil {
		return QueuedAction{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.loadActions(ctx, q.pendingKey)
	if err != nil {
		return QueuedAction{}, fmt.Errorf("load pending queue: %w", err)
	}

	pending = append(pending, action)

	if err := q.saveActions(ctx, q.pendingKey, pending); err != nil {
		return QueuedAction{}, fmt.Errorf("persist pending queue: %w", err)
	}

	q.logger.Log(ctx, log.LevelInfo, "queued offline action",
		log.String("action_type", action.ActionType),
		log.String("action_id", action.ID.String()),
		log.Int("pending", len(pending)))

	return action, nil
}

// ProcessQueue drains the pending partition in strict insertion order.
//
// At most one drain runs at a time: a concurrent call observes the in-flight
// flag and returns an empty successful Result without touching the queue.
// Offline is a pass-level short-circuit; per-item failures never abort the
// pass.
func (q *Queue) ProcessQueue(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	if !q.draining.CompareAndSwap(false, true) {
		q.logger.Log(ctx, log.LevelDebug, "queue drain already in flight, skipping")

		return Result{Success: true}
	}
	defer q.draining.Store(false)

	if !q.online(ctx) {
		return Result{Success: false, Errors: []string{NoNetworkMessage}}
	}

	ctx, span := q.tracer.Start(ctx, "syncqueue.process_queue")
	defer span.End()

	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.loadActions(ctx, q.pendingKey)
	if err != nil {
		q.logger.Log(ctx, log.LevelError, "failed to load pending queue", log.Err(err))

		return Result{Success: false, Errors: []string{err.Error()}}
	}

	result := Result{Success: true}
	retained := make([]QueuedAction, 0, len(pending))

	var demoted []QueuedAction

	// Handlers are awaited sequentially: handler N+1 never starts before
	// handler N settles, which is what preserves insertion order.
	for _, action := range pending {
		handler, ok := q.handlers.Resolve(action.ActionType)
		if !ok {
			// Retained, not failed: the handler may be registered later.
			q.logger.Log(ctx, log.LevelDebug, "no handler registered, retaining action",
				log.String("action_type", action.ActionType))

			retained = append(retained, action)

			continue
		}

		if err := q.invoke(ctx, handler, action); err != nil {
			action.RetryCount++
			action.LastError = err.Error()
			result.Failed++
			result.Errors = append(result.Errors, action.ActionType+": "+err.Error())

			if action.RetryCount > action.MaxRetries {
				demoted = append(demoted, action)

				q.logger.Log(ctx, log.LevelWarn, "action exceeded retry budget, moving to failed partition",
					log.String("action_type", action.ActionType),
					log.String("action_id", action.ID.String()),
					log.Int("retry_count", action.RetryCount),
					log.Err(err))
			} else {
				retained = append(retained, action)

				q.logger.Log(ctx, log.LevelWarn, "action failed, will retry on next drain",
					log.String("action_type", action.ActionType),
					log.String("action_id", action.ID.String()),
					log.Int("retry_count", action.RetryCount),
					log.Err(err))
			}

			continue
		}

		result.Processed++
	}

	// One persist per partition, after the full pass.
	if err := q.saveActions(ctx, q.pendingKey, retained); err != nil {
		q.logger.Log(ctx, log.LevelError, "failed to persist pending queue", log.Err(err))
		result.Errors = append(result.Errors, err.Error())
		result.Success = false
	}

	if len(demoted) > 0 {
		if err := q.appendFailed(ctx, demoted); err != nil {
			q.logger.Log(ctx, log.LevelError, "failed to persist failed partition", log.Err(err))
			result.Errors = append(result.Errors, err.Error())
			result.Success = false
		}
	}

	if result.Failed > 0 {
		result.Success = false
	}

	span.SetAttributes(
		attribute.Int("syncqueue.processed", result.Processed),
		attribute.Int("syncqueue.failed", result.Failed),
	)

	q.logger.Log(ctx, log.LevelInfo, "queue drain complete",
		log.Int("processed", result.Processed),
		log.Int("failed", result.Failed),
		log.Int("remaining", len(retained)))

	return result
}

// RetryFailed re-runs only the failed partition. Succeeding items are
// removed; items that fail again stay put with a refreshed last error.
func (q *Queue) RetryFailed(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	if !q.draining.CompareAndSwap(false, true) {
		return Result{Success: true}
	}
	defer q.draining.Store(false)

	if !q.online(ctx) {
		return Result{Success: false, Errors: []string{NoNetworkMessage}}
	}

	ctx, span := q.tracer.Start(ctx, "syncqueue.retry_failed")
	defer span.End()

	q.mu.Lock()
	defer q.mu.Unlock()

	failed, err := q.loadActions(ctx, q.failedKey)
	if err != nil {
		q.logger.Log(ctx, log.LevelError, "failed to load failed partition", log.Err(err))

		return Result{Success: false, Errors: []string{err.Error()}}
	}

	result := Result{Success: true}
	retained := make([]QueuedAction, 0, len(failed))

	for _, action := range failed {
		handler, ok := q.handlers.Resolve(action.ActionType)
		if !ok {
			retained = append(retained, action)
			continue
		}

		if err := q.invoke(ctx, handler, action); err != nil {
			action.LastError = err.Error()
			retained = append(retained, action)
			result.Failed++
			result.Errors = append(result.Errors, action.ActionType+": "+err.Error())

			continue
		}

		result.Processed++
	}

	if err := q.saveActions(ctx, q.failedKey, retained); err != nil {
		q.logger.Log(ctx, log.LevelError, "failed to persist failed partition", log.Err(err))
		result.Errors = append(result.Errors, err.Error())
		result.Success = false
	}

	if result.Failed > 0 {
		result.Success = false
	}

	return result
}

// QueueStatus reports depth of both partitions.
func (q *Queue) QueueStatus(ctx context.Context) (Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.loadActions(ctx, q.pendingKey)
	if err != nil {
		return Status{}, fmt.Errorf("load pending queue: %w", err)
	}

	failed, err := q.loadActions(ctx, q.failedKey)
	if err != nil {
		return Status{}, fmt.Errorf("load failed partition: %w", err)
	}

	return Status{
		Pending: len(pending),
		Failed:  len(failed),
		Total:   len(pending) + len(failed),
	}, nil
}

// ClearAll unconditionally wipes both partitions.
func (q *Queue) ClearAll(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.MultiRemove(ctx, q.pendingKey, q.failedKey); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}

	q.logger.Log(ctx, log.LevelInfo, "offline queue cleared")

	return nil
}

// invoke runs one handler with panic containment: a panicking handler counts
// as a failed attempt, never a crashed drain.
func (q *Queue) invoke(ctx context.Context, handler Handler, action QueuedAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = runtime.PanicToError(r)

			q.logger.Log(ctx, log.LevelError, "action handler panicked",
				log.String("action_type", action.ActionType),
				log.String("action_id", action.ID.String()),
				log.Err(err))
		}
	}()

	return handler(ctx, action.Payload)
}

func (q *Queue) online(ctx context.Context) bool {
	state, err := q.provider.Fetch(ctx)
	if err != nil {
		q.logger.Log(ctx, log.LevelWarn, "connectivity check failed, treating as offline", log.Err(err))

		return false
	}

	if !state.Online() {
		q.logger.Log(ctx, log.LevelDebug, "skipping drain, device offline",
			log.Bool("connected", state.Connected),
			log.Bool("internet_reachable", state.InternetReachable))

		return false
	}

	return true
}

func (q *Queue) loadActions(ctx context.Context, key string) ([]QueuedAction, error) {
	raw, err := q.store.GetItem(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	var actions []QueuedAction
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, fmt.Errorf("decode queue slot %s: %w", key, err)
	}

	return actions, nil
}

func (q *Queue) saveActions(ctx context.Context, key string, actions []QueuedAction) error {
	if actions == nil {
		actions = []QueuedAction{}
	}

	raw, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encode queue slot %s: %w", key, err)
	}

	return q.store.SetItem(ctx, key, raw)
}

func (q *Queue) appendFailed(ctx context.Context, demoted []QueuedAction) error {
	failed, err := q.loadActions(ctx, q.failedKey)
	if err != nil {
		return err
	}

	return q.saveActions(ctx, q.failedKey, append(failed, demoted...))
}
