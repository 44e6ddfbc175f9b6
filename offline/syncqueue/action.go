package syncqueue

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries is how many failed drain attempts an action survives
// before it is demoted to the failed partition.
const DefaultMaxRetries = 3

// QueuedAction is one durably recorded user intent awaiting replay.
type QueuedAction struct {
	ID         uuid.UUID       `json:"id"`
	ActionType string          `json:"actionType"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	MaxRetries int             `json:"maxRetries"`
	RetryCount int             `json:"retryCount"`
	LastError  string          `json:"lastError,omitempty"`
}

// NewQueuedAction creates a pending action. The payload is opaque to the
// queue but must be valid JSON so the persisted array stays parseable.
func NewQueuedAction(actionType string, payload json.RawMessage, maxRetries int) (QueuedAction, error) {
	actionType = strings.TrimSpace(actionType)
	if actionType == "" {
		return QueuedAction{}, ErrActionTypeRequired
	}

	if len(payload) == 0 || !json.Valid(payload) {
		return QueuedAction{}, ErrPayloadNotJSON
	}

	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}

	return QueuedAction{
		ID:         uuid.New(),
		ActionType: actionType,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
		MaxRetries: maxRetries,
	}, nil
}
