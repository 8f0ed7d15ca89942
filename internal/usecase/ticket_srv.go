package usecase

import (
	"context"
	"fmt"
	"time"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/entity"
	"cinema-core/internal/data/lock"
	"cinema-core/internal/data/repository"
	"cinema-core/internal/versiontoken"
	"cinema-core/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TicketService interface {
	Create(ctx context.Context, screeningTime time.Time, ticketType entity.TicketType, userID, movieID uuid.UUID) (*entity.TicketDetails, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.TicketDetails, error)
	FindByIDWithToken(ctx context.Context, id uuid.UUID, caller string) (*entity.TicketDetails, string, error)
	FindAll(ctx context.Context) ([]*entity.TicketDetails, error)
	Update(ctx context.Context, ticket *entity.Ticket, token, caller string) (*entity.Ticket, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ticketService struct {
	repo   *repository.Repository
	tokens versiontoken.Protocol
	locker lock.Locker
	log    *zap.Logger
}

func NewTicketService(
	repo *repository.Repository,
	tokens versiontoken.Protocol,
	locker lock.Locker,
	log *zap.Logger,
) TicketService {
	return &ticketService{
		repo:   repo,
		tokens: tokens,
		locker: locker,
		log:    log.With(zap.String("service", "ticket")),
	}
}

// Create resolves both references before inserting. It holds the movie
// and user locks that movie and user deletion take, so neither referent
// can disappear before the ticket is stored.
func (s *ticketService) Create(ctx context.Context, screeningTime time.Time, ticketType entity.TicketType, userID, movieID uuid.UUID) (*entity.TicketDetails, error) {
	if _, err := ticketType.Multiplier(); err != nil {
		return nil, fmt.Errorf("create ticket: %w: %v", apperr.ErrValidation, err)
	}

	var details *entity.TicketDetails
	keys := []string{lock.MovieKey(movieID), lock.UserKey(userID)}
	err := withLocks(ctx, s.locker, keys, func(ctx context.Context) error {
		candidate := &entity.Ticket{
			Base:    entity.Base{ID: utils.GenerateUUID()},
			UserID:  userID,
			MovieID: movieID,
		}
		resolved, err := s.repo.Resolver.ResolveTicket(ctx, candidate)
		if err != nil {
			return err
		}

		ticket, err := entity.NewTicket(candidate.ID, screeningTime, ticketType, resolved.User, resolved.Movie)
		if err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
		}
		if err := s.repo.Ticket.Create(ctx, ticket); err != nil {
			return err
		}

		resolved.Ticket = ticket
		details = resolved
		return nil
	})
	if err != nil {
		s.log.Warn("Failed to create ticket",
			zap.Error(err),
			zap.String("movie_id", movieID.String()),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	s.log.Info("Ticket created",
		zap.String("ticket_id", details.Ticket.ID.String()),
		zap.Float64("final_price", details.Ticket.FinalPrice),
	)
	return details, nil
}

func (s *ticketService) FindByID(ctx context.Context, id uuid.UUID) (*entity.TicketDetails, error) {
	var details *entity.TicketDetails
	err := s.repo.ReadOnly(ctx, func(ctx context.Context, view *repository.Repository) error {
		ticket, err := view.Ticket.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if ticket == nil {
			return notFound("ticket", id)
		}
		details, err = view.Resolver.ResolveTicket(ctx, ticket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return details, nil
}

func (s *ticketService) FindByIDWithToken(ctx context.Context, id uuid.UUID, caller string) (*entity.TicketDetails, string, error) {
	details, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(details.Ticket, caller)
	if err != nil {
		return nil, "", fmt.Errorf("issue ticket token: %w", err)
	}
	return details, token, nil
}

func (s *ticketService) FindAll(ctx context.Context) ([]*entity.TicketDetails, error) {
	var details []*entity.TicketDetails
	err := s.repo.ReadOnly(ctx, func(ctx context.Context, view *repository.Repository) error {
		tickets, err := view.Ticket.FindAll(ctx)
		if err != nil {
			return err
		}
		details, err = view.Resolver.ResolveTickets(ctx, tickets)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get tickets: %w", err)
	}
	return details, nil
}

// Update only moves the screening time. Identity, references, type and
// price are fixed at creation; changing any of them is rejected before
// the token is looked at.
func (s *ticketService) Update(ctx context.Context, ticket *entity.Ticket, token, caller string) (*entity.Ticket, error) {
	current, err := s.repo.Ticket.FindByID(ctx, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("update ticket: %w", notFound("ticket", ticket.ID))
	}

	if field, changed := immutableChange(current, ticket); changed {
		s.log.Warn("Attempt to change immutable ticket field",
			zap.String("ticket_id", ticket.ID.String()),
			zap.String("field", field),
		)
		return nil, fmt.Errorf("update ticket %s: %s: %w", ticket.ID, field, apperr.ErrImmutableField)
	}

	if err := verifyVersion(s.log, s.tokens, token, current, caller); err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}

	updated := *current
	updated.ScreeningTime = ticket.ScreeningTime.UTC()
	if err := s.repo.Ticket.UpdateIf(ctx, current, &updated); err != nil {
		return nil, fmt.Errorf("update ticket: %w", conditionalWriteError(current, err))
	}

	s.log.Info("Ticket updated", zap.String("ticket_id", ticket.ID.String()))
	return &updated, nil
}

func immutableChange(current, next *entity.Ticket) (string, bool) {
	switch {
	case next.UserID != current.UserID:
		return entity.FieldUserID, true
	case next.MovieID != current.MovieID:
		return entity.FieldMovieID, true
	case next.Type != "" && next.Type != current.Type:
		return "ticket_type", true
	case next.FinalPrice != 0 && entity.Cents(next.FinalPrice) != entity.Cents(current.FinalPrice):
		return "ticket_final_price", true
	default:
		return "", false
	}
}

func (s *ticketService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := deleteError("ticket", id, s.repo.Ticket.Delete(ctx, id)); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}

	s.log.Info("Ticket deleted", zap.String("ticket_id", id.String()))
	return nil
}
