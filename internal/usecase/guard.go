package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/entity"
	"cinema-core/internal/data/lock"
	"cinema-core/internal/data/store"
	"cinema-core/internal/versiontoken"

	"go.uber.org/zap"
)

// verifyVersion checks a presented token against the stored state the
// caller is about to overwrite.
func verifyVersion(log *zap.Logger, tokens versiontoken.Protocol, token string, current entity.Canonical, caller string) error {
	err := tokens.Verify(token, current, caller)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrForgedVersion):
		log.Warn("Rejected forged version token",
			zap.String("kind", current.Kind()),
			zap.String("id", current.Key().String()),
			zap.String("caller", caller),
		)
	case errors.Is(err, apperr.ErrStaleVersion):
		log.Info("Rejected stale version token",
			zap.String("kind", current.Kind()),
			zap.String("id", current.Key().String()),
		)
	}
	return err
}

// conditionalWriteError maps a compare-and-swap miss to a stale version:
// someone wrote between our read and our replace.
func conditionalWriteError(e entity.Canonical, err error) error {
	if errors.Is(err, store.ErrNoMatch) {
		return fmt.Errorf("%s %s: %w", e.Kind(), e.Key(), apperr.ErrStaleVersion)
	}
	return err
}

// deleteError maps a delete that matched nothing to not found.
func deleteError(kind string, id fmt.Stringer, err error) error {
	if errors.Is(err, store.ErrNoMatch) {
		return fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
	}
	return err
}

func notFound(kind string, id fmt.Stringer) error {
	return fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
}

// withLocks runs fn under every key. Failing to take a lock is a store
// fault; errors from fn pass through unchanged.
func withLocks(ctx context.Context, l lock.Locker, keys []string, fn func(ctx context.Context) error) error {
	var fnErr error
	err := lock.WithLocks(ctx, l, keys, func(ctx context.Context) error {
		fnErr = fn(ctx)
		return fnErr
	})
	if err != nil && fnErr == nil {
		return apperr.Fault("lock "+strings.Join(keys, ","), err)
	}
	return err
}
