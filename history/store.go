package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Store is an append-only destination for records. Append must be safe for concurrent use, and
// must never modify or remove anything that was appended before.
type Store interface {
	Append(ctx context.Context, r Record) error
	Close() error
}

// Named is implemented by stores that can describe themselves in error messages.
type Named interface {
	Name() string
}

func storeName(s Store) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// StoreWriteError means a record could not be persisted. The run's history is then incomplete,
// which the harness treats as fatal.
type StoreWriteError struct {
	Backend  string
	RecordID string
	Err      error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("could not write record %s to %s: %s", e.RecordID, e.Backend, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// IsStoreWriteError returns true if err is or wraps a *StoreWriteError.
func IsStoreWriteError(err error) bool {
	var se *StoreWriteError
	return errors.As(err, &se)
}

type teeStore struct {
	stores []Store
	lock   sync.Mutex
}

// Tee returns a Store that appends every record to the primary store and then to each mirror,
// holding a single lock for the whole operation so that every backend receives the records in the
// same order. It stops at the first failure.
func Tee(primary Store, mirrors ...Store) Store {
	if len(mirrors) == 0 {
		return primary
	}
	return &teeStore{stores: append([]Store{primary}, mirrors...)}
}

func (t *teeStore) Name() string { return "tee" }

func (t *teeStore) Append(ctx context.Context, r Record) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	for _, s := range t.stores {
		if err := s.Append(ctx, r); err != nil {
			if IsStoreWriteError(err) {
				return err
			}
			return &StoreWriteError{Backend: storeName(s), RecordID: r.RecordID, Err: err}
		}
	}
	return nil
}

// Close closes every store, even if one fails, and returns the first error.
func (t *teeStore) Close() error {
	var firstErr error
	for _, s := range t.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
