// Package runtime provides panic recovery helpers for background goroutines,
// so a panicking handler or watcher loop never takes the host process down.
package runtime

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/giftwave/lib-offline/offline/log"
)

// RecoverAndLog recovers from a panic, logs it with the stack trace, and
// continues execution. Use in defer statements for handlers and workers
// where a panic must not crash the process.
//
//	defer runtime.RecoverAndLog(ctx, logger, "syncqueue", "drain")
func RecoverAndLog(ctx context.Context, logger log.Logger, component, name string) {
	if r := recover(); r != nil {
		logPanic(ctx, logger, component, name, r)
	}
}

// SafeGo runs fn in a new goroutine with panic recovery attached.
func SafeGo(ctx context.Context, logger log.Logger, component, name string, fn func()) {
	go func() {
		defer RecoverAndLog(ctx, logger, component, name)
		fn()
	}()
}

// PanicToError converts a recovered panic value into an error.
func PanicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}

	return fmt.Errorf("panic: %v", r)
}

func logPanic(ctx context.Context, logger log.Logger, component, name string, r any) {
	log.OrNop(logger).Log(ctx, log.LevelError, "panic recovered",
		log.String("component", component),
		log.String("goroutine", name),
		log.Err(PanicToError(r)),
		log.String("stack", string(debug.Stack())),
	)
}
