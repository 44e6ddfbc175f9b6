//go:build unit

package syncqueue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueuedAction(t *testing.T) {
	t.Parallel()

	action, err := NewQueuedAction(" send-gift ", json.RawMessage(`{"amount":5}`), 2)
	require.NoError(t, err)

	assert.Equal(t, "send-gift", action.ActionType)
	assert.NotEqual(t, uuid.Nil, action.ID)
	assert.Equal(t, 2, action.MaxRetries)
	assert.Zero(t, action.RetryCount)
	assert.False(t, action.EnqueuedAt.IsZero())
}

func TestNewQueuedActionNegativeRetriesUsesDefault(t *testing.T) {
	t.Parallel()

	action, err := NewQueuedAction("send-gift", json.RawMessage(`{}`), -1)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRetries, action.MaxRetries)
}

func TestNewQueuedActionZeroRetriesIsKept(t *testing.T) {
	t.Parallel()

	action, err := NewQueuedAction("send-gift", json.RawMessage(`{}`), 0)
	require.NoError(t, err)
	assert.Zero(t, action.MaxRetries)
}

func TestNewQueuedActionRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewQueuedAction("", json.RawMessage(`{}`), 1)
	assert.ErrorIs(t, err, ErrActionTypeRequired)

	_, err = NewQueuedAction("send-gift", json.RawMessage(`{"broken":`), 1)
	assert.ErrorIs(t, err, ErrPayloadNotJSON)
}
