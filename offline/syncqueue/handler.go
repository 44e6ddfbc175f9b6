package syncqueue

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// Handler replays one queued action. A nil return removes the action from
// the queue; an error (or panic) counts as one failed attempt. Handlers must
// be idempotent for their action type: a drain interrupted between the
// remote call and the persist will replay them.
//
// Conflict policy lives here, not in the queue: a handler may compare a
// timestamp carried in the payload against server state and apply
// last-write-wins. The queue makes no assumptions about payload shape.
type Handler func(ctx context.Context, payload json.RawMessage) error

// HandlerRegistry stores action handlers by action type. One handler per
// type; the last registration wins.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: map[string]Handler{}}
}

// Register binds handler to actionType, replacing any previous binding.
func (registry *HandlerRegistry) Register(actionType string, handler Handler) error {
	if registry == nil {
		return ErrHandlerRequired
	}

	normalizedType := strings.TrimSpace(actionType)
	if normalizedType == "" {
		return ErrActionTypeRequired
	}

	if handler == nil {
		return ErrHandlerRequired
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.handlers == nil {
		registry.handlers = make(map[string]Handler)
	}

	registry.handlers[normalizedType] = handler

	return nil
}

// Resolve returns the handler bound to actionType.
func (registry *HandlerRegistry) Resolve(actionType string) (Handler, bool) {
	if registry == nil {
		return nil, false
	}

	registry.mu.RLock()
	defer registry.mu.RUnlock()

	handler, ok := registry.handlers[strings.TrimSpace(actionType)]

	return handler, ok
}
