// Package lock serializes critical sections that span several documents,
// such as creating a ticket while its movie may be deleted.
package lock

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
)

var ErrTimeout = errors.New("lock wait timed out")

// Locker runs fn while holding an exclusive lock on key. The lock is
// released when fn returns, whatever its result.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// multiLocker is implemented by backends that take several keys at once.
type multiLocker interface {
	WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

func MovieKey(id uuid.UUID) string { return "movie:" + id.String() }
func UserKey(id uuid.UUID) string  { return "user:" + id.String() }

// WithLocks runs fn inside the locks of every key. Keys are sorted and
// deduplicated first, so any two callers take shared keys in the same order.
func WithLocks(ctx context.Context, l Locker, keys []string, fn func(ctx context.Context) error) error {
	keys = slices.Compact(slices.Sorted(slices.Values(keys)))
	if len(keys) == 0 {
		return fn(ctx)
	}
	if ml, ok := l.(multiLocker); ok {
		return ml.WithLocks(ctx, keys, fn)
	}
	return nest(ctx, l, keys, fn)
}

func nest(ctx context.Context, l Locker, keys []string, fn func(ctx context.Context) error) error {
	if len(keys) == 0 {
		return fn(ctx)
	}
	return l.WithLock(ctx, keys[0], func(ctx context.Context) error {
		return nest(ctx, l, keys[1:], fn)
	})
}
