package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cinema-core/internal/data/entity"
	"cinema-core/internal/data/repository"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type movieFixture struct {
	ID            string  `yaml:"id"`
	Title         string  `yaml:"title"`
	BasePrice     float64 `yaml:"base_price"`
	ScreeningRoom int     `yaml:"screening_room"`
	SeatCapacity  int     `yaml:"seat_capacity"`
}

type fixtures struct {
	Movies []movieFixture `yaml:"movies"`
}

func loadFixtures(data []byte) ([]*entity.Movie, error) {
	var f fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	movies := make([]*entity.Movie, 0, len(f.Movies))
	for i, m := range f.Movies {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, fmt.Errorf("movie #%d: invalid id %q: %w", i+1, m.ID, err)
		}
		movies = append(movies, &entity.Movie{
			Base:          entity.Base{ID: id},
			Title:         m.Title,
			BasePrice:     entity.RoundPrice(m.BasePrice),
			ScreeningRoom: m.ScreeningRoom,
			SeatCapacity:  m.SeatCapacity,
		})
	}
	return movies, nil
}

// seedMovies inserts the movies whose IDs are not stored yet and returns
// how many it inserted.
func seedMovies(ctx context.Context, repo *repository.Repository, movies []*entity.Movie, log *zap.Logger) (int, error) {
	inserted := 0
	for _, m := range movies {
		existing, err := repo.Movie.FindByID(ctx, m.ID)
		if err != nil {
			return inserted, err
		}
		if existing != nil {
			log.Debug("Seed movie already present", zap.String("movie_id", m.ID.String()))
			continue
		}
		if err := repo.Movie.Create(ctx, m); err != nil {
			return inserted, fmt.Errorf("seed movie %q: %w", m.Title, err)
		}
		inserted++
	}
	return inserted, nil
}

func newSeedCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the fixture movies (existing IDs are skipped)",
		RunE: func(cmd *cobra.Command, args []string) error {
			data := defaultSeed
			if file != "" {
				var err error
				if data, err = os.ReadFile(file); err != nil {
					return fmt.Errorf("read fixtures: %w", err)
				}
			}
			movies, err := loadFixtures(data)
			if err != nil {
				return err
			}

			rt, err := a.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			inserted, err := seedMovies(cmd.Context(), rt.repo, movies, a.logger)
			if err != nil {
				return err
			}

			a.logger.Info("Seed complete",
				zap.Int("inserted", inserted),
				zap.Int("skipped", len(movies)-inserted),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d movie(s), skipped %d\n", inserted, len(movies)-inserted)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML fixture file (defaults to the built-in movies)")
	return cmd
}
