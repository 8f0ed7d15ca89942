package cmd

import (
	"context"
	"testing"

	"cinema-core/internal/data/entity"
	"cinema-core/internal/data/repository"
	"cinema-core/internal/data/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultFixtures(t *testing.T) {
	movies, err := loadFixtures(defaultSeed)
	require.NoError(t, err)
	require.Len(t, movies, 3)

	assert.Equal(t, uuid.MustParse("f3e66584-f793-4f5e-9dec-904ca00e2dd6"), movies[0].ID)
	assert.Equal(t, "Pulp Fiction", movies[0].Title)
	assert.Equal(t, 45.75, movies[0].BasePrice)
	assert.Equal(t, 30.5, movies[1].BasePrice)
	assert.Equal(t, 2, movies[1].ScreeningRoom)
	assert.Equal(t, 75, movies[2].SeatCapacity)
}

func TestLoadFixturesRejectsBadID(t *testing.T) {
	_, err := loadFixtures([]byte("movies:\n  - id: nope\n    title: Cars\n"))
	assert.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	g := store.NewMemory()
	defer g.Close()
	repo := repository.NewRepository(g, zap.NewNop())

	movies, err := loadFixtures(defaultSeed)
	require.NoError(t, err)

	inserted, err := seedMovies(ctx, repo, movies, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	inserted, err = seedMovies(ctx, repo, movies, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	stored, err := repo.Movie.FindByID(ctx, movies[2].ID)
	require.NoError(t, err)
	assert.True(t, entity.Equal(movies[2], stored))
}

func TestSeedRejectsInvalidFixture(t *testing.T) {
	g := store.NewMemory()
	defer g.Close()
	repo := repository.NewRepository(g, zap.NewNop())

	bad := []*entity.Movie{{Base: entity.Base{ID: uuid.New()}, Title: "Too Expensive", BasePrice: 500, ScreeningRoom: 1}}
	_, err := seedMovies(context.Background(), repo, bad, zap.NewNop())
	assert.Error(t, err)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "seed"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}
