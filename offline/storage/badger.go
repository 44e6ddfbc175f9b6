package storage

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/giftwave/lib-offline/offline/log"
)

// BadgerStore is a Store backed by an embedded BadgerDB instance. It is the
// durable on-device backend: state written here survives process restarts.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a Badger database at path.
func NewBadgerStore(path string, logger log.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(&badgerLogger{logger: log.OrNop(logger)})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", path, err)
	}

	return &BadgerStore{db: db}, nil
}

// GetItem returns the value stored under key.
func (s *BadgerStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}

	return value, nil
}

// SetItem stores value under key.
func (s *BadgerStore) SetItem(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}

	return nil
}

// RemoveItem deletes key. Absent keys are a no-op.
func (s *BadgerStore) RemoveItem(ctx context.Context, key string) error {
	return s.MultiRemove(ctx, key)
}

// MultiRemove deletes all keys in one transaction.
func (s *BadgerStore) MultiRemove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("badger remove: %w", err)
	}

	return nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts log.Logger to badger's printf-style logger.
type badgerLogger struct {
	logger log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logf(log.LevelError, format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logf(log.LevelWarn, format, args...)
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logf(log.LevelDebug, format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logf(log.LevelDebug, format, args...)
}

func (l *badgerLogger) logf(level log.Level, format string, args ...any) {
	if !l.logger.Enabled(level) {
		return
	}

	l.logger.Log(context.Background(), level, "badger: "+fmt.Sprintf(format, args...))
}
