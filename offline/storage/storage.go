// Package storage defines the durable key-value contract that the offline
// queue and pending-transaction tracker persist through, plus in-memory,
// Badger and Redis backends.
//
// Each collection is stored as one whole-value blob under one key; every
// mutation is a read-modify-write of the entire blob. Callers are expected to
// serialize mutations per collection.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetItem when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is an addressable blob store with string keys.
//
// RemoveItem and MultiRemove are no-ops for absent keys.
type Store interface {
	GetItem(ctx context.Context, key string) ([]byte, error)
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys ...string) error
}
