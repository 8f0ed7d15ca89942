package repository

import (
	"context"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/store"

	"go.uber.org/zap"
)

type Repository struct {
	Movie    MovieRepository
	Ticket   TicketRepository
	User     UserRepository
	Resolver Resolver

	gateway store.Gateway
	log     *zap.Logger
}

func NewRepository(g store.Gateway, log *zap.Logger) *Repository {
	return newRepository(g, g, log)
}

func newRepository(g store.Gateway, rd store.Reader, log *zap.Logger) *Repository {
	movies := newMovieRepository(g, rd, log)
	tickets := newTicketRepository(g, rd, log)
	users := newUserRepository(g, rd, log)
	return &Repository{
		Movie:    movies,
		Ticket:   tickets,
		User:     users,
		Resolver: NewResolver(movies, tickets, users, log),
		gateway:  g,
		log:      log,
	}
}

// ReadOnly runs fn with repositories whose reads all observe one snapshot
// of the store. fn must not write through them.
func (r *Repository) ReadOnly(ctx context.Context, fn func(ctx context.Context, repo *Repository) error) error {
	var fnErr error
	err := r.gateway.ReadOnly(ctx, func(ctx context.Context, rd store.Reader) error {
		fnErr = fn(ctx, newRepository(r.gateway, rd, r.log))
		return fnErr
	})
	if err != nil && fnErr == nil {
		r.log.Error("Snapshot session failed", zap.Error(err))
		return apperr.Fault("read snapshot", err)
	}
	return err
}

// Ping checks that the document store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.gateway.Ping(ctx); err != nil {
		return apperr.Fault("ping store", err)
	}
	return nil
}
