package lock

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"cinema-core/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// session is the part of a pooled connection an advisory lock needs.
type session interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Release()
}

type acquireFunc func(ctx context.Context) (session, error)

// Postgres uses session advisory locks, so it serializes every instance
// sharing the database. Give it its own pool: a holder keeps its
// connection while fn runs and fn needs store connections of its own.
type Postgres struct {
	acquire acquireFunc
	wait    time.Duration
	log     *zap.Logger
}

func NewPostgres(db database.PgxIface, wait time.Duration, log *zap.Logger) *Postgres {
	return newPostgres(func(ctx context.Context) (session, error) {
		conn, err := db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}, wait, log)
}

func newPostgres(acquire acquireFunc, wait time.Duration, log *zap.Logger) *Postgres {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Postgres{acquire: acquire, wait: wait, log: log.With(zap.String("lock", "postgres"))}
}

// advisoryKey maps key to a deterministic 64-bit lock ID.
func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("cinema:"))
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

func (p *Postgres) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return p.WithLocks(ctx, []string{key}, fn)
}

// WithLocks takes every key on one session, so a caller never holds more
// than one pooled connection. Keys must already be sorted and distinct.
// Waiting for the connection and for the locks shares one deadline.
func (p *Postgres) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	lctx, cancel := context.WithTimeout(ctx, p.wait)
	defer cancel()

	timedOut := func() bool { return lctx.Err() != nil && ctx.Err() == nil }

	// the lock belongs to the session, so lock and unlock on one connection
	conn, err := p.acquire(lctx)
	if err != nil {
		if timedOut() {
			return fmt.Errorf("%w: no connection for %v", ErrTimeout, keys)
		}
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	held := make([]string, 0, len(keys))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			uctx, ucancel := context.WithTimeout(context.Background(), p.wait)
			if _, err := conn.Exec(uctx, "SELECT pg_advisory_unlock($1)", advisoryKey(held[i])); err != nil {
				p.log.Warn("Failed to release lock", zap.String("key", held[i]), zap.Error(err))
			}
			ucancel()
		}
	}()

	for _, key := range keys {
		lockID := advisoryKey(key)

		var got bool
		if err := conn.QueryRow(lctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&got); err != nil {
			if timedOut() {
				return fmt.Errorf("%w: %s", ErrTimeout, key)
			}
			return fmt.Errorf("try lock %s: %w", key, err)
		}
		if !got {
			p.log.Debug("Lock is held, waiting", zap.String("key", key))
			if _, err := conn.Exec(lctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
				if timedOut() {
					return fmt.Errorf("%w: %s", ErrTimeout, key)
				}
				return fmt.Errorf("lock %s: %w", key, err)
			}
		}
		held = append(held, key)
	}

	return fn(ctx)
}
