package repository

import (
	"context"
	"fmt"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resolver joins tickets with the movies and users they reference. The
// join happens in two steps: collect the referenced IDs, then fetch each
// side in one batch.
type Resolver interface {
	ResolveTicket(ctx context.Context, ticket *entity.Ticket) (*entity.TicketDetails, error)
	ResolveTickets(ctx context.Context, tickets []*entity.Ticket) ([]*entity.TicketDetails, error)
	// TicketsForMovie returns an empty slice when nothing references the
	// movie, including when the movie itself does not exist.
	TicketsForMovie(ctx context.Context, movieID uuid.UUID) ([]*entity.TicketDetails, error)
	TicketsForUser(ctx context.Context, userID uuid.UUID) ([]*entity.TicketDetails, error)
	MovieReferenced(ctx context.Context, movieID uuid.UUID) (bool, error)
	UserReferenced(ctx context.Context, userID uuid.UUID) (bool, error)
}

type resolver struct {
	movies  MovieRepository
	tickets TicketRepository
	users   UserRepository
	log     *zap.Logger
}

func NewResolver(movies MovieRepository, tickets TicketRepository, users UserRepository, log *zap.Logger) Resolver {
	return &resolver{
		movies:  movies,
		tickets: tickets,
		users:   users,
		log:     log.With(zap.String("component", "resolver")),
	}
}

func (r *resolver) ResolveTicket(ctx context.Context, ticket *entity.Ticket) (*entity.TicketDetails, error) {
	details, err := r.ResolveTickets(ctx, []*entity.Ticket{ticket})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// ResolveTickets fails on the first ticket whose movie or user is missing,
// naming the missing side. The movie is checked first.
func (r *resolver) ResolveTickets(ctx context.Context, tickets []*entity.Ticket) ([]*entity.TicketDetails, error) {
	out := make([]*entity.TicketDetails, 0, len(tickets))
	if len(tickets) == 0 {
		return out, nil
	}

	movieIDs := make([]uuid.UUID, 0, len(tickets))
	userIDs := make([]uuid.UUID, 0, len(tickets))
	for _, t := range tickets {
		movieIDs = append(movieIDs, t.MovieID)
		userIDs = append(userIDs, t.UserID)
	}

	movies, err := r.movies.FindByIDs(ctx, movieIDs)
	if err != nil {
		return nil, err
	}
	users, err := r.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	for _, t := range tickets {
		m, ok := movies[t.MovieID]
		if !ok {
			r.log.Warn("Ticket references a missing movie",
				zap.String("ticket_id", t.ID.String()),
				zap.String("movie_id", t.MovieID.String()),
			)
			return nil, fmt.Errorf("ticket %s: movie %s: %w", t.ID, t.MovieID, apperr.ErrMovieNotFoundForTicket)
		}
		u, ok := users[t.UserID]
		if !ok {
			r.log.Warn("Ticket references a missing user",
				zap.String("ticket_id", t.ID.String()),
				zap.String("user_id", t.UserID.String()),
			)
			return nil, fmt.Errorf("ticket %s: user %s: %w", t.ID, t.UserID, apperr.ErrUserNotFoundForTicket)
		}
		out = append(out, &entity.TicketDetails{Ticket: t, Movie: m, User: u})
	}
	return out, nil
}

func (r *resolver) TicketsForMovie(ctx context.Context, movieID uuid.UUID) ([]*entity.TicketDetails, error) {
	tickets, err := r.tickets.FindByMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return r.ResolveTickets(ctx, tickets)
}

func (r *resolver) TicketsForUser(ctx context.Context, userID uuid.UUID) ([]*entity.TicketDetails, error) {
	tickets, err := r.tickets.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.ResolveTickets(ctx, tickets)
}

func (r *resolver) MovieReferenced(ctx context.Context, movieID uuid.UUID) (bool, error) {
	n, err := r.tickets.CountByMovie(ctx, movieID)
	return n > 0, err
}

func (r *resolver) UserReferenced(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := r.tickets.CountByUser(ctx, userID)
	return n > 0, err
}
