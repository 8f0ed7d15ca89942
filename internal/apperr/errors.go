// Package apperr defines the error kinds the repository core reports.
// Callers distinguish them with errors.Is; the concrete messages carry the
// entity and identifier involved.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreFault covers every transport or server-side failure of the
	// document store.
	ErrStoreFault = errors.New("store fault")

	// ErrNotFound is returned by by-ID lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when a document violates its collection schema.
	ErrValidation = errors.New("validation failed")

	ErrOrphanReference        = errors.New("orphan reference")
	ErrMovieNotFoundForTicket = fmt.Errorf("%w: movie not found for ticket", ErrOrphanReference)
	ErrUserNotFoundForTicket  = fmt.Errorf("%w: user not found for ticket", ErrOrphanReference)

	ErrDuplicateLogin  = errors.New("login already taken")
	ErrResourceInUse   = errors.New("resource is currently in use")
	ErrVariantMismatch = errors.New("user variant mismatch")
	ErrImmutableField  = errors.New("immutable field changed")

	// ErrStaleOrForgedUpdate is the parent of ErrStaleVersion and
	// ErrForgedVersion. The two children must stay distinguishable: a
	// stale token is a concurrency event, a forged one a security event.
	ErrStaleOrForgedUpdate = errors.New("stale or forged update")
	ErrStaleVersion        = fmt.Errorf("%w: entity changed since it was read", ErrStaleOrForgedUpdate)
	ErrForgedVersion       = fmt.Errorf("%w: version token rejected", ErrStaleOrForgedUpdate)

	ErrActivationTargetNotFound = errors.New("activation target not found")
)

type faultError struct {
	op  string
	err error
}

func (e *faultError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *faultError) Unwrap() []error {
	return []error{ErrStoreFault, e.err}
}

// Fault marks err as an infrastructure failure of operation op. The
// original cause stays reachable through errors.Is and errors.As.
func Fault(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreFault) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &faultError{op: op, err: err}
}

// Kind returns a short stable name for the first kind err matches, or
// "unknown". Used for log fields and metrics labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStaleVersion):
		return "stale_version"
	case errors.Is(err, ErrForgedVersion):
		return "forged_version"
	case errors.Is(err, ErrMovieNotFoundForTicket):
		return "movie_not_found_for_ticket"
	case errors.Is(err, ErrUserNotFoundForTicket):
		return "user_not_found_for_ticket"
	case errors.Is(err, ErrActivationTargetNotFound):
		return "activation_target_not_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicateLogin):
		return "duplicate_login"
	case errors.Is(err, ErrResourceInUse):
		return "resource_in_use"
	case errors.Is(err, ErrVariantMismatch):
		return "variant_mismatch"
	case errors.Is(err, ErrImmutableField):
		return "immutable_field"
	case errors.Is(err, ErrStoreFault):
		return "store_fault"
	default:
		return "unknown"
	}
}
