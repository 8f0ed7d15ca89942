package usecase

import (
	"context"
	"fmt"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/entity"
	"cinema-core/internal/data/lock"
	"cinema-core/internal/data/repository"
	"cinema-core/internal/versiontoken"
	"cinema-core/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MovieService interface {
	Create(ctx context.Context, title string, basePrice float64, room, seats int) (*entity.Movie, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Movie, error)
	FindByIDWithToken(ctx context.Context, id uuid.UUID, caller string) (*entity.Movie, string, error)
	FindAll(ctx context.Context) ([]*entity.Movie, error)
	FindAllMatching(ctx context.Context, titleFragment string) ([]*entity.Movie, error)
	FindPage(ctx context.Context, page, perPage int) ([]*entity.Movie, int64, error)
	Tickets(ctx context.Context, id uuid.UUID) ([]*entity.TicketDetails, error)
	Update(ctx context.Context, movie *entity.Movie, token, caller string) (*entity.Movie, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type movieService struct {
	repo   *repository.Repository
	tokens versiontoken.Protocol
	locker lock.Locker
	log    *zap.Logger
}

func NewMovieService(
	repo *repository.Repository,
	tokens versiontoken.Protocol,
	locker lock.Locker,
	log *zap.Logger,
) MovieService {
	return &movieService{
		repo:   repo,
		tokens: tokens,
		locker: locker,
		log:    log.With(zap.String("service", "movie")),
	}
}

func (s *movieService) Create(ctx context.Context, title string, basePrice float64, room, seats int) (*entity.Movie, error) {
	movie := &entity.Movie{
		Base:          entity.Base{ID: utils.GenerateUUID()},
		Title:         title,
		BasePrice:     entity.RoundPrice(basePrice),
		ScreeningRoom: room,
		SeatCapacity:  seats,
	}

	if err := s.repo.Movie.Create(ctx, movie); err != nil {
		return nil, fmt.Errorf("create movie: %w", err)
	}

	s.log.Info("Movie created",
		zap.String("movie_id", movie.ID.String()),
		zap.String("title", movie.Title),
	)
	return movie, nil
}

func (s *movieService) FindByID(ctx context.Context, id uuid.UUID) (*entity.Movie, error) {
	movie, err := s.repo.Movie.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	if movie == nil {
		return nil, notFound("movie", id)
	}
	return movie, nil
}

func (s *movieService) FindByIDWithToken(ctx context.Context, id uuid.UUID, caller string) (*entity.Movie, string, error) {
	movie, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(movie, caller)
	if err != nil {
		return nil, "", fmt.Errorf("issue movie token: %w", err)
	}
	return movie, token, nil
}

func (s *movieService) FindAll(ctx context.Context) ([]*entity.Movie, error) {
	var movies []*entity.Movie
	err := s.repo.ReadOnly(ctx, func(ctx context.Context, view *repository.Repository) error {
		var err error
		movies, err = view.Movie.FindAll(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get movies: %w", err)
	}
	return movies, nil
}

func (s *movieService) FindAllMatching(ctx context.Context, titleFragment string) ([]*entity.Movie, error) {
	var movies []*entity.Movie
	err := s.repo.ReadOnly(ctx, func(ctx context.Context, view *repository.Repository) error {
		var err error
		movies, err = view.Movie.FindAllMatching(ctx, titleFragment)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get movies by title: %w", err)
	}
	return movies, nil
}

// FindPage reads the page and the total in one snapshot so they agree.
func (s *movieService) FindPage(ctx context.Context, page, perPage int) ([]*entity.Movie, int64, error) {
	var (
		movies []*entity.Movie
		total  int64
	)
	err := s.repo.ReadOnly(ctx, func(ctx context.Context, view *repository.Repository) error {
		var err error
		movies, err = view.Movie.FindPage(ctx, utils.CalculateOffset(page, perPage), perPage)
		if err != nil {
			return err
		}
		total, err = view.Movie.CountAll(ctx)
		return err
	})
	if err != nil {
		s.log.Error("Failed to get movie page",
			zap.Error(err),
			zap.Int("page", page),
			zap.Int("per_page", perPage),
		)
		return nil, 0, fmt.Errorf("get movies: %w", err)
	}

	s.log.Debug("Movies retrieved",
		zap.Int("count", len(movies)),
		zap.Int64("total", total),
		zap.Int("page", page),
	)
	return movies, total, nil
}

func (s *movieService) Tickets(ctx context.Context, id uuid.UUID) ([]*entity.TicketDetails, error) {
	var details []*entity.TicketDetails
	err := s.repo.ReadOnly(ctx, func(ctx context.Context, view *repository.Repository) error {
		movie, err := view.Movie.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if movie == nil {
			return notFound("movie", id)
		}
		details, err = view.Resolver.TicketsForMovie(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get movie tickets: %w", err)
	}
	return details, nil
}

// Update replaces the stored movie with movie if token still matches the
// stored state. The replace is conditional on that same state, so a write
// landing between the check and the replace is reported as stale.
func (s *movieService) Update(ctx context.Context, movie *entity.Movie, token, caller string) (*entity.Movie, error) {
	current, err := s.FindByID(ctx, movie.ID)
	if err != nil {
		return nil, fmt.Errorf("update movie: %w", err)
	}
	if err := verifyVersion(s.log, s.tokens, token, current, caller); err != nil {
		return nil, fmt.Errorf("update movie: %w", err)
	}

	updated := *movie
	updated.BasePrice = entity.RoundPrice(updated.BasePrice)
	if err := s.repo.Movie.UpdateIf(ctx, current, &updated); err != nil {
		return nil, fmt.Errorf("update movie: %w", conditionalWriteError(current, err))
	}

	s.log.Info("Movie updated", zap.String("movie_id", movie.ID.String()))
	return &updated, nil
}

// Delete refuses while any ticket references the movie. Ticket creation
// holds the same lock, so no ticket can appear between check and delete.
func (s *movieService) Delete(ctx context.Context, id uuid.UUID) error {
	err := withLocks(ctx, s.locker, []string{lock.MovieKey(id)}, func(ctx context.Context) error {
		movie, err := s.repo.Movie.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if movie == nil {
			return notFound("movie", id)
		}

		referenced, err := s.repo.Resolver.MovieReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			s.log.Warn("Movie still has tickets", zap.String("movie_id", id.String()))
			return fmt.Errorf("movie %s: %w", id, apperr.ErrResourceInUse)
		}

		return deleteError("movie", id, s.repo.Movie.Delete(ctx, id))
	})
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}

	s.log.Info("Movie deleted", zap.String("movie_id", id.String()))
	return nil
}
