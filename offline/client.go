package offline

import (
	"context"
	"time"

	"github.com/giftwave/lib-offline/offline/circuitbreaker"
	"github.com/giftwave/lib-offline/offline/connectivity"
	"github.com/giftwave/lib-offline/offline/log"
	"github.com/giftwave/lib-offline/offline/pendingtx"
	"github.com/giftwave/lib-offline/offline/runtime"
	"github.com/giftwave/lib-offline/offline/storage"
	"github.com/giftwave/lib-offline/offline/syncqueue"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPollInterval is how often the client probes connectivity when no
// interval is configured.
const DefaultPollInterval = 15 * time.Second

// Config wires the client's external dependencies. Everything is optional;
// zero values get conservative defaults suitable for development.
type Config struct {
	// Store persists queue and transaction state. Defaults to an in-memory
	// store, which does not survive restarts.
	Store storage.Store

	// Connectivity answers "are we online". Defaults to an HTTP probe
	// against a generate-204 endpoint.
	Connectivity connectivity.Provider

	// Logger receives structured events from every component.
	Logger log.Logger

	// Tracer instruments queue drains. Optional.
	Tracer trace.Tracer

	// PollInterval is the connectivity polling cadence.
	PollInterval time.Duration

	// PendingTTL overrides how long unresolved transactions stay visible.
	PendingTTL time.Duration
}

// Client is the composition root: one offline queue, one pending-transaction
// tracker, one circuit breaker registry, and a connectivity watcher that
// drains the queue whenever the network comes back.
type Client struct {
	queue        *syncqueue.Queue
	transactions *pendingtx.Service
	breakers     *circuitbreaker.Registry
	watcher      *connectivity.Watcher
	logger       log.Logger
}

// New assembles a Client from cfg.
func New(cfg Config) (*Client, error) {
	logger := log.OrNop(cfg.Logger)

	store := cfg.Store
	if store == nil {
		logger.Log(context.Background(), log.LevelWarn,
			"no store configured, offline state will not survive restarts")

		store = storage.NewMemoryStore()
	}

	provider := cfg.Connectivity
	if provider == nil {
		provider = connectivity.NewHTTPProbe()
	}

	queueOpts := []syncqueue.Option{}
	if cfg.Tracer != nil {
		queueOpts = append(queueOpts, syncqueue.WithTracer(cfg.Tracer))
	}

	queue, err := syncqueue.New(store, provider, logger, queueOpts...)
	if err != nil {
		return nil, err
	}

	txOpts := []pendingtx.Option{}
	if cfg.PendingTTL > 0 {
		txOpts = append(txOpts, pendingtx.WithTTL(cfg.PendingTTL))
	}

	transactions, err := pendingtx.NewService(store, logger, txOpts...)
	if err != nil {
		return nil, err
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	client := &Client{
		queue:        queue,
		transactions: transactions,
		breakers:     circuitbreaker.NewRegistry(logger),
		logger:       logger,
	}

	client.watcher = connectivity.NewWatcher(provider, client.onOnline, logger,
		connectivity.WithPollInterval(interval))

	return client, nil
}

// Queue returns the offline action queue.
func (c *Client) Queue() *syncqueue.Queue {
	return c.queue
}

// Transactions returns the pending-transaction tracker.
func (c *Client) Transactions() *pendingtx.Service {
	return c.transactions
}

// Breakers returns the circuit breaker registry.
func (c *Client) Breakers() *circuitbreaker.Registry {
	return c.breakers
}

// Start reconciles leftover transactions, begins connectivity polling, and
// kicks an initial drain in the background. Call it once after all handlers
// are registered.
func (c *Client) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := c.transactions.CheckPendingOnStartup(ctx); err != nil {
		return err
	}

	c.watcher.Start(ctx)

	runtime.SafeGo(ctx, c.logger, "offline", "initial_drain", func() {
		c.queue.ProcessQueue(ctx)
	})

	return nil
}

// Shutdown stops connectivity polling and flushes the logger. In-flight
// drains finish on their own; queued state is already durable.
func (c *Client) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.watcher.Stop()

	return c.logger.Sync(ctx)
}

// onOnline fires on every offline-to-online transition.
func (c *Client) onOnline(ctx context.Context) {
	result := c.queue.ProcessQueue(ctx)

	c.logger.Log(ctx, log.LevelInfo, "reconnect drain finished",
		log.Int("processed", result.Processed),
		log.Int("failed", result.Failed))
}
