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

type MovieRepository interface {
	Create(ctx context.Context, movie *entity.Movie) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Movie, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Movie, error)
	FindAll(ctx context.Context) ([]*entity.Movie, error)
	FindAllMatching(ctx context.Context, titleFragment string) ([]*entity.Movie, error)
	FindPage(ctx context.Context, offset, limit int) ([]*entity.Movie, error)
	CountAll(ctx context.Context) (int64, error)
	Update(ctx context.Context, movie *entity.Movie) error
	// UpdateIf replaces the stored movie only while it still equals expected.
	UpdateIf(ctx context.Context, expected, movie *entity.Movie) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type movieRepository struct {
	g   store.Gateway
	rd  store.Reader
	log *zap.Logger
}

func NewMovieRepository(g store.Gateway, log *zap.Logger) MovieRepository {
	return newMovieRepository(g, g, log)
}

func newMovieRepository(g store.Gateway, rd store.Reader, log *zap.Logger) *movieRepository {
	return &movieRepository{
		g:   g,
		rd:  rd,
		log: log.With(zap.String("repository", "movie")),
	}
}

func (r *movieRepository) Create(ctx context.Context, movie *entity.Movie) error {
	if err := validateEntity(movie); err != nil {
		return err
	}
	doc, err := encode("create movie", movie)
	if err != nil {
		return err
	}

	if err := r.g.Insert(ctx, store.Movies, movie.ID, doc); err != nil {
		r.log.Error("Failed to create movie",
			zap.Error(err),
			zap.String("title", movie.Title),
		)
		return storeError("create movie", err)
	}

	return nil
}

func (r *movieRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Movie, error) {
	doc, err := r.rd.FindByID(ctx, store.Movies, id)
	if err != nil {
		r.log.Error("Failed to find movie by ID",
			zap.Error(err),
			zap.String("movie_id", id.String()),
		)
		return nil, storeError("find movie", err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeMovie(doc)
}

func (r *movieRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Movie, error) {
	movies, err := r.find(ctx, "find movies by ID", store.In(entity.FieldID, idStrings(ids)...))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*entity.Movie, len(movies))
	for _, m := range movies {
		out[m.ID] = m
	}
	return out, nil
}

func (r *movieRepository) FindAll(ctx context.Context) ([]*entity.Movie, error) {
	return r.find(ctx, "find movies", store.All())
}

func (r *movieRepository) FindAllMatching(ctx context.Context, titleFragment string) ([]*entity.Movie, error) {
	return r.find(ctx, "find movies by title", store.Contains(entity.FieldMovieTitle, titleFragment))
}

func (r *movieRepository) FindPage(ctx context.Context, offset, limit int) ([]*entity.Movie, error) {
	docs, err := r.rd.Aggregate(ctx, store.Movies, store.Pipeline{
		store.SortBy(entity.FieldMovieTitle, false),
		store.Skip(int64(offset)),
		store.Limit(int64(limit)),
	})
	if err != nil {
		r.log.Error("Failed to find movie page",
			zap.Error(err),
			zap.Int("offset", offset),
			zap.Int("limit", limit),
		)
		return nil, storeError("find movie page", err)
	}
	return decodeMovies(docs)
}

func (r *movieRepository) CountAll(ctx context.Context) (int64, error) {
	total, err := r.rd.Count(ctx, store.Movies, store.All())
	if err != nil {
		r.log.Error("Failed to count movies", zap.Error(err))
		return 0, storeError("count movies", err)
	}
	return total, nil
}

func (r *movieRepository) Update(ctx context.Context, movie *entity.Movie) error {
	if err := validateEntity(movie); err != nil {
		return err
	}
	doc, err := encode("update movie", movie)
	if err != nil {
		return err
	}

	if err := r.g.Replace(ctx, store.Movies, movie.ID, doc); err != nil {
		r.log.Warn("Failed to update movie", zap.Error(err), zap.String("movie_id", movie.ID.String()))
		return storeError("update movie", err)
	}
	return nil
}

func (r *movieRepository) UpdateIf(ctx context.Context, expected, movie *entity.Movie) error {
	if err := validateEntity(movie); err != nil {
		return err
	}
	want, err := encode("update movie", expected)
	if err != nil {
		return err
	}
	doc, err := encode("update movie", movie)
	if err != nil {
		return err
	}

	if err := r.g.ReplaceIf(ctx, store.Movies, movie.ID, want, doc); err != nil {
		r.log.Warn("Conditional movie update failed", zap.Error(err), zap.String("movie_id", movie.ID.String()))
		return storeError("update movie", err)
	}
	return nil
}

func (r *movieRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.g.Delete(ctx, store.Movies, id); err != nil {
		r.log.Warn("Failed to delete movie", zap.Error(err), zap.String("movie_id", id.String()))
		return storeError("delete movie", err)
	}
	return nil
}

func (r *movieRepository) find(ctx context.Context, op string, f store.Filter) ([]*entity.Movie, error) {
	docs, err := r.rd.Find(ctx, store.Movies, f)
	if err != nil {
		r.log.Error("Failed to find movies", zap.Error(err), zap.Stringer("filter", f))
		return nil, storeError(op, err)
	}

	movies, err := decodeMovies(docs)
	if err != nil {
		return nil, err
	}

	r.log.Debug("Movies found", zap.Int("count", len(movies)))
	return movies, nil
}

func decodeMovie(doc []byte) (*entity.Movie, error) {
	var m entity.Movie
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, apperr.Fault("decode movie", err)
	}
	return &m, nil
}

func decodeMovies(docs [][]byte) ([]*entity.Movie, error) {
	movies := make([]*entity.Movie, 0, len(docs))
	for _, doc := range docs {
		m, err := decodeMovie(doc)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, nil
}
