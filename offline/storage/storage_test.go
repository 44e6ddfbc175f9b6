//go:build unit

package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/giftwave/lib-offline/offline/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract exercises every backend against the same expectations.
func storeContract(t *testing.T, store Store) {
	t.Helper()

	ctx := context.Background()

	_, err := store.GetItem(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetItem(ctx, "a", []byte(`[1,2]`)))
	require.NoError(t, store.SetItem(ctx, "b", []byte(`{"x":true}`)))

	value, err := store.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1,2]`), value)

	require.NoError(t, store.SetItem(ctx, "a", []byte(`[3]`)))

	value, err = store.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[3]`), value)

	require.NoError(t, store.RemoveItem(ctx, "a"))
	require.NoError(t, store.RemoveItem(ctx, "never-existed"))

	_, err = store.GetItem(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetItem(ctx, "c", []byte(`1`)))
	require.NoError(t, store.MultiRemove(ctx, "b", "c", "never-existed"))

	_, err = store.GetItem(ctx, "b")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetItem(ctx, "c")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	storeContract(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	original := []byte(`[1]`)
	require.NoError(t, store.SetItem(ctx, "k", original))
	original[1] = '9'

	value, err := store.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1]`), value)
}

func TestBadgerStore(t *testing.T) {
	t.Parallel()

	store, err := NewBadgerStore(t.TempDir(), log.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, store.Close()) })

	storeContract(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewBadgerStore(dir, log.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.SetItem(ctx, "pending-payments", []byte(`[{"id":"p1"}]`)))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(dir, log.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, reopened.Close()) })

	value, err := reopened.GetItem(ctx, "pending-payments")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"p1"}]`), value)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	store, err := NewRedisStore(client)
	require.NoError(t, err)

	storeContract(t, store)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	store, err := NewRedisStore(client, WithKeyPrefix("device-42"))
	require.NoError(t, err)

	require.NoError(t, store.SetItem(ctx, "offline-queue-pending", []byte(`[]`)))
	assert.True(t, server.Exists("device-42:offline-queue-pending"))
}

func TestRedisStoreRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(nil)
	require.Error(t, err)
}
