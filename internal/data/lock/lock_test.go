package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal(0)
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "movie:1", func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.entries)
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal(time.Second)
	err := l.WithLock(context.Background(), "a", func(ctx context.Context) error {
		return l.WithLock(ctx, "b", func(context.Context) error { return nil })
	})
	assert.NoError(t, err)
}

func TestLocalTimeout(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	err := l.WithLock(context.Background(), "k", func(ctx context.Context) error {
		return l.WithLock(ctx, "k", func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestLocalHonorsCancellation(t *testing.T) {
	l := NewLocal(0)
	ctx, cancel := context.WithCancel(context.Background())
	err := l.WithLock(ctx, "k", func(inner context.Context) error {
		cancel()
		return l.WithLock(inner, "k", func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalPropagatesResult(t *testing.T) {
	boom := errors.New("boom")
	l := NewLocal(0)
	assert.ErrorIs(t, l.WithLock(context.Background(), "k", func(context.Context) error { return boom }), boom)
	// released after an error
	require.NoError(t, l.WithLock(context.Background(), "k", func(context.Context) error { return nil }))
}

func TestWithLocksNests(t *testing.T) {
	l := NewLocal(time.Second)
	var order []string
	err := WithLocks(context.Background(), l, []string{"a", "b"}, func(context.Context) error {
		l.mu.Lock()
		for k := range l.entries {
			order = append(order, k)
		}
		l.mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, order)
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("b69b4714-e307-4ebf-b491-e3720f963f53")
	assert.Equal(t, "movie:b69b4714-e307-4ebf-b491-e3720f963f53", MovieKey(id))
	assert.Equal(t, "user:b69b4714-e307-4ebf-b491-e3720f963f53", UserKey(id))
	assert.Equal(t, "cinema:lock:movie:x", redisKey("movie:x"))
}

func TestAdvisoryKeyIsStable(t *testing.T) {
	assert.Equal(t, advisoryKey("movie:1"), advisoryKey("movie:1"))
	assert.NotEqual(t, advisoryKey("movie:1"), advisoryKey("user:1"))
}

// recordingLocker notes the order keys are locked in.
type recordingLocker struct {
	keys []string
}

func (r *recordingLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	r.keys = append(r.keys, key)
	return fn(ctx)
}

func TestWithLocksSortsAndDeduplicates(t *testing.T) {
	r := &recordingLocker{}
	keys := []string{"user:1", "movie:2", "user:1"}
	require.NoError(t, WithLocks(context.Background(), r, keys, func(context.Context) error { return nil }))

	assert.Equal(t, []string{"movie:2", "user:1"}, r.keys)
	assert.Equal(t, []string{"user:1", "movie:2", "user:1"}, keys)
}

type boolRow struct{ v bool }

func (r boolRow) Scan(dest ...any) error {
	*dest[0].(*bool) = r.v
	return nil
}

// fakeSession answers advisory lock statements. When free is false every
// lock is held elsewhere and pg_advisory_lock blocks until ctx ends.
type fakeSession struct {
	mu       sync.Mutex
	free     bool
	stmts    []string
	released bool
}

func (s *fakeSession) record(op string, id any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stmts = append(s.stmts, fmt.Sprintf("%s %d", op, id))
}

func (s *fakeSession) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.record("try", args[0])
	return boolRow{v: s.free}
}

func (s *fakeSession) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if strings.Contains(sql, "unlock") {
		s.record("unlock", args[0])
		return pgconn.NewCommandTag("SELECT 1"), nil
	}
	s.record("lock", args[0])
	<-ctx.Done()
	return pgconn.CommandTag{}, ctx.Err()
}

func (s *fakeSession) Release() { s.released = true }

func stmt(op, key string) string {
	return fmt.Sprintf("%s %d", op, advisoryKey(key))
}

func TestPostgresTakesAllKeysOnOneSession(t *testing.T) {
	sess := &fakeSession{free: true}
	acquired := 0
	p := newPostgres(func(context.Context) (session, error) {
		acquired++
		return sess, nil
	}, time.Second, zap.NewNop())

	err := WithLocks(context.Background(), p, []string{"user:1", "movie:1"}, func(context.Context) error {
		assert.Equal(t, []string{stmt("try", "movie:1"), stmt("try", "user:1")}, sess.stmts)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, acquired)
	assert.True(t, sess.released)
	assert.Equal(t, []string{
		stmt("try", "movie:1"),
		stmt("try", "user:1"),
		stmt("unlock", "user:1"),
		stmt("unlock", "movie:1"),
	}, sess.stmts)
}

func TestPostgresAcquireIsBounded(t *testing.T) {
	// a pool with no free connection blocks until the context ends
	p := newPostgres(func(ctx context.Context) (session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, 30*time.Millisecond, zap.NewNop())

	called := false
	start := time.Now()
	err := p.WithLock(context.Background(), "movie:1", func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, called)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPostgresHeldKeyTimesOut(t *testing.T) {
	sess := &fakeSession{free: false}
	p := newPostgres(func(context.Context) (session, error) { return sess, nil }, 30*time.Millisecond, zap.NewNop())

	err := p.WithLock(context.Background(), "movie:1", func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, sess.released)
	assert.Equal(t, []string{stmt("try", "movie:1"), stmt("lock", "movie:1")}, sess.stmts)
}

func TestPostgresCallerCancellationIsNotATimeout(t *testing.T) {
	p := newPostgres(func(ctx context.Context) (session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.WithLock(ctx, "movie:1", func(context.Context) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}
