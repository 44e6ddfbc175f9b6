package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/giftwave/lib-offline/offline/backoff"
	"github.com/giftwave/lib-offline/offline/log"
	"github.com/giftwave/lib-offline/offline/runtime"
)

const defaultPollInterval = 15 * time.Second

// OnlineFunc is invoked when the watcher observes an offline-to-online
// transition. It runs on the watcher goroutine with panic recovery attached.
type OnlineFunc func(ctx context.Context)

// Watcher polls a Provider and fires a callback when connectivity returns.
// This is the trigger that drains the offline queue.
type Watcher struct {
	provider Provider
	onOnline OnlineFunc
	logger   log.Logger
	interval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
	online  bool
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithPollInterval sets the base polling interval. Each wait is additionally
// jittered to avoid synchronized probe bursts across a device fleet.
func WithPollInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// NewWatcher creates a watcher around provider. onOnline may be nil, in which
// case the watcher only tracks state.
func NewWatcher(provider Provider, onOnline OnlineFunc, logger log.Logger, opts ...WatcherOption) *Watcher {
	watcher := &Watcher{
		provider: provider,
		onOnline: onOnline,
		logger:   log.OrNop(logger),
		interval: defaultPollInterval,
	}

	for _, opt := range opts {
		opt(watcher)
	}

	return watcher
}

// Start begins the polling loop in a background goroutine. Starting an
// already-started watcher is a no-op; a stopped watcher may be started
// again.
func (w *Watcher) Start(ctx context.Context) {
	if w == nil {
		return
	}

	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}

	w.started = true
	w.stopChan = make(chan struct{})
	stop := w.stopChan
	w.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	w.wg.Add(1)
	runtime.SafeGo(ctx, w.logger, "connectivity", "watcher_loop", func() {
		defer w.wg.Done()
		w.loop(ctx, stop)
	})

	w.logger.Log(ctx, log.LevelInfo, "connectivity watcher started",
		log.Duration("interval", w.interval))
}

// Stop terminates the polling loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}

	w.started = false
	close(w.stopChan)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Log(context.Background(), log.LevelInfo, "connectivity watcher stopped")
}

// Online reports the last observed connectivity verdict.
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.online
}

func (w *Watcher) loop(ctx context.Context, stop <-chan struct{}) {
	w.poll(ctx)

	for {
		timer := time.NewTimer(w.nextDelay())

		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.poll(ctx)
		}
	}
}

// nextDelay spreads polls across [interval, interval+25%).
func (w *Watcher) nextDelay() time.Duration {
	return w.interval + backoff.FullJitter(w.interval/4)
}

func (w *Watcher) poll(ctx context.Context) {
	state, err := w.provider.Fetch(ctx)
	if err != nil {
		w.logger.Log(ctx, log.LevelWarn, "connectivity check failed", log.Err(err))
		return
	}

	online := state.Online()

	w.mu.Lock()
	wasOnline := w.online
	w.online = online
	w.mu.Unlock()

	if online == wasOnline {
		return
	}

	if !online {
		w.logger.Log(ctx, log.LevelWarn, "connectivity lost",
			log.Bool("connected", state.Connected),
			log.Bool("internet_reachable", state.InternetReachable))
		return
	}

	w.logger.Log(ctx, log.LevelInfo, "connectivity restored")

	if w.onOnline != nil {
		func() {
			defer runtime.RecoverAndLog(ctx, w.logger, "connectivity", "on_online")
			w.onOnline(ctx)
		}()
	}
}
