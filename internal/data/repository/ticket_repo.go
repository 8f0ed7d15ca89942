package repository

import (
	"context"
	"encoding/json"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/entity"
	"cinema-core/internal/data/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *entity.Ticket) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Ticket, error)
	FindAll(ctx context.Context) ([]*entity.Ticket, error)
	FindByMovie(ctx context.Context, movieID uuid.UUID) ([]*entity.Ticket, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Ticket, error)
	CountByMovie(ctx context.Context, movieID uuid.UUID) (int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Update(ctx context.Context, ticket *entity.Ticket) error
	UpdateIf(ctx context.Context, expected, ticket *entity.Ticket) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ticketRepository struct {
	g   store.Gateway
	rd  store.Reader
	log *zap.Logger
}

func NewTicketRepository(g store.Gateway, log *zap.Logger) TicketRepository {
	return newTicketRepository(g, g, log)
}

func newTicketRepository(g store.Gateway, rd store.Reader, log *zap.Logger) *ticketRepository {
	return &ticketRepository{
		g:   g,
		rd:  rd,
		log: log.With(zap.String("repository", "ticket")),
	}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *entity.Ticket) error {
	if err := validateEntity(ticket); err != nil {
		return err
	}
	doc, err := encode("create ticket", ticket)
	if err != nil {
		return err
	}

	if err := r.g.Insert(ctx, store.Tickets, ticket.ID, doc); err != nil {
		r.log.Error("Failed to create ticket",
			zap.Error(err),
			zap.String("movie_id", ticket.MovieID.String()),
			zap.String("user_id", ticket.UserID.String()),
		)
		return storeError("create ticket", err)
	}
	return nil
}

func (r *ticketRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Ticket, error) {
	doc, err := r.rd.FindByID(ctx, store.Tickets, id)
	if err != nil {
		r.log.Error("Failed to find ticket by ID",
			zap.Error(err),
			zap.String("ticket_id", id.String()),
		)
		return nil, storeError("find ticket", err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeTicket(doc)
}

func (r *ticketRepository) FindAll(ctx context.Context) ([]*entity.Ticket, error) {
	return r.aggregate(ctx, "find tickets", store.Pipeline{})
}

// FindByMovie is the reverse lookup behind the movie delete guard: the
// store has no foreign keys, so the join is a filter on the embedded ID.
func (r *ticketRepository) FindByMovie(ctx context.Context, movieID uuid.UUID) ([]*entity.Ticket, error) {
	return r.aggregate(ctx, "find tickets by movie", store.Pipeline{
		store.Match(store.Eq(entity.FieldMovieID, movieID.String())),
	})
}

func (r *ticketRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Ticket, error) {
	return r.aggregate(ctx, "find tickets by user", store.Pipeline{
		store.Match(store.Eq(entity.FieldUserID, userID.String())),
	})
}

func (r *ticketRepository) CountByMovie(ctx context.Context, movieID uuid.UUID) (int64, error) {
	return r.count(ctx, "count tickets by movie", store.Eq(entity.FieldMovieID, movieID.String()))
}

func (r *ticketRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.count(ctx, "count tickets by user", store.Eq(entity.FieldUserID, userID.String()))
}

func (r *ticketRepository) Update(ctx context.Context, ticket *entity.Ticket) error {
	if err := validateEntity(ticket); err != nil {
		return err
	}
	doc, err := encode("update ticket", ticket)
	if err != nil {
		return err
	}

	if err := r.g.Replace(ctx, store.Tickets, ticket.ID, doc); err != nil {
		r.log.Warn("Failed to update ticket", zap.Error(err), zap.String("ticket_id", ticket.ID.String()))
		return storeError("update ticket", err)
	}
	return nil
}

func (r *ticketRepository) UpdateIf(ctx context.Context, expected, ticket *entity.Ticket) error {
	if err := validateEntity(ticket); err != nil {
		return err
	}
	want, err := encode("update ticket", expected)
	if err != nil {
		return err
	}
	doc, err := encode("update ticket", ticket)
	if err != nil {
		return err
	}

	if err := r.g.ReplaceIf(ctx, store.Tickets, ticket.ID, want, doc); err != nil {
		r.log.Warn("Conditional ticket update failed", zap.Error(err), zap.String("ticket_id", ticket.ID.String()))
		return storeError("update ticket", err)
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.g.Delete(ctx, store.Tickets, id); err != nil {
		r.log.Warn("Failed to delete ticket", zap.Error(err), zap.String("ticket_id", id.String()))
		return storeError("delete ticket", err)
	}
	return nil
}

func (r *ticketRepository) aggregate(ctx context.Context, op string, p store.Pipeline) ([]*entity.Ticket, error) {
	docs, err := r.rd.Aggregate(ctx, store.Tickets, p)
	if err != nil {
		r.log.Error("Failed to query tickets", zap.Error(err), zap.String("op", op))
		return nil, storeError(op, err)
	}

	tickets := make([]*entity.Ticket, 0, len(docs))
	for _, doc := range docs {
		t, err := decodeTicket(doc)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	r.log.Debug("Tickets found", zap.String("op", op), zap.Int("count", len(tickets)))
	return tickets, nil
}

func (r *ticketRepository) count(ctx context.Context, op string, f store.Filter) (int64, error) {
	n, err := r.rd.Count(ctx, store.Tickets, f)
	if err != nil {
		r.log.Error("Failed to count tickets", zap.Error(err), zap.String("op", op))
		return 0, storeError(op, err)
	}
	return n, nil
}

func decodeTicket(doc []byte) (*entity.Ticket, error) {
	var t entity.Ticket
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, apperr.Fault("decode ticket", err)
	}
	return &t, nil
}
