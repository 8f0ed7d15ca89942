package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movieDoc(t *testing.T, id uuid.UUID, title string, room int) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{"id": id.String(), "movie_title": title, "scr_room_number": room})
	require.NoError(t, err)
	return b
}

func titles(t *testing.T, docs [][]byte) []string {
	t.Helper()
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		var m map[string]any
		require.NoError(t, json.Unmarshal(d, &m))
		out = append(out, m["movie_title"].(string))
	}
	return out
}

func seedMovies(t *testing.T, g Gateway) []uuid.UUID {
	t.Helper()
	ctx := context.Background()
	var ids []uuid.UUID
	for i, title := range []string{"Pulp Fiction", "Cars", "Joker", "Cars 2"} {
		id := uuid.New()
		require.NoError(t, g.Insert(ctx, Movies, id, movieDoc(t, id, title, 4-i)))
		ids = append(ids, id)
	}
	return ids
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	id := uuid.New()

	doc, err := g.FindByID(ctx, Movies, id)
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, g.Insert(ctx, Movies, id, movieDoc(t, id, "Cars", 1)))
	err = g.Insert(ctx, Movies, id, movieDoc(t, id, "Cars", 1))
	assert.ErrorIs(t, err, ErrDuplicateKey)
	key, ok := DuplicateKey(err)
	assert.True(t, ok)
	assert.Equal(t, KeyID, key)

	doc, err = g.FindByID(ctx, Movies, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cars"}, titles(t, [][]byte{doc}))

	require.NoError(t, g.Replace(ctx, Movies, id, movieDoc(t, id, "Joker", 1)))
	doc, _ = g.FindByID(ctx, Movies, id)
	assert.Equal(t, []string{"Joker"}, titles(t, [][]byte{doc}))

	assert.ErrorIs(t, g.Replace(ctx, Movies, uuid.New(), movieDoc(t, id, "x", 1)), ErrNoMatch)

	require.NoError(t, g.Delete(ctx, Movies, id))
	assert.ErrorIs(t, g.Delete(ctx, Movies, id), ErrNoMatch)
}

func TestMemoryReplaceIf(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	id := uuid.New()
	original := movieDoc(t, id, "Cars", 1)
	require.NoError(t, g.Insert(ctx, Movies, id, original))

	// key order does not matter for the comparison
	reordered := []byte(fmt.Sprintf(`{"scr_room_number":1,"movie_title":"Cars","id":%q}`, id))
	require.NoError(t, g.ReplaceIf(ctx, Movies, id, reordered, movieDoc(t, id, "Cars 2", 1)))

	err := g.ReplaceIf(ctx, Movies, id, original, movieDoc(t, id, "Cars 3", 1))
	assert.ErrorIs(t, err, ErrNoMatch)

	doc, _ := g.FindByID(ctx, Movies, id)
	assert.Equal(t, []string{"Cars 2"}, titles(t, [][]byte{doc}))
}

func TestMemoryUniqueLogin(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	a, b := uuid.New(), uuid.New()
	userDoc := func(id uuid.UUID, login string) []byte {
		return []byte(fmt.Sprintf(`{"id":%q,"user_login":%q,"user_role":"client"}`, id, login))
	}

	require.NoError(t, g.Insert(ctx, Users, a, userDoc(a, "someLogin1")))
	err := g.Insert(ctx, Users, b, userDoc(b, "someLogin1"))
	assert.ErrorIs(t, err, ErrDuplicateKey)
	key, ok := DuplicateKey(err)
	assert.True(t, ok)
	assert.Equal(t, "user_login", key)
	require.NoError(t, g.Insert(ctx, Users, b, userDoc(b, "otherLogin1")))

	assert.ErrorIs(t, g.Replace(ctx, Users, b, userDoc(b, "someLogin1")), ErrDuplicateKey)
	// rewriting a document with its own login is not a conflict
	require.NoError(t, g.Replace(ctx, Users, a, userDoc(a, "someLogin1")))
}

func TestConstraintKey(t *testing.T) {
	assert.Equal(t, "user_login", constraintKey("users_login_unique"))
	assert.Equal(t, KeyID, constraintKey("users_pkey"))
	assert.Equal(t, "other_unique", constraintKey("other_unique"))

	_, ok := DuplicateKey(ErrNoMatch)
	assert.False(t, ok)
}

func TestMemoryFilters(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	ids := seedMovies(t, g)

	docs, err := g.Find(ctx, Movies, All())
	require.NoError(t, err)
	assert.Equal(t, []string{"Pulp Fiction", "Cars", "Joker", "Cars 2"}, titles(t, docs))

	docs, err = g.Find(ctx, Movies, Contains("movie_title", "cAr"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cars", "Cars 2"}, titles(t, docs))

	docs, err = g.Find(ctx, Movies, Eq("scr_room_number", 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"Joker"}, titles(t, docs))

	docs, err = g.Find(ctx, Movies, In("id", ids[0].String(), ids[3].String(), uuid.NewString()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Pulp Fiction", "Cars 2"}, titles(t, docs))

	docs, err = g.Find(ctx, Movies, In("id"))
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = g.Find(ctx, Movies, And(Contains("movie_title", "cars"), Eq("scr_room_number", 1)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cars 2"}, titles(t, docs))

	n, err := g.Count(ctx, Movies, Contains("movie_title", "cars"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryAggregate(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	seedMovies(t, g)

	docs, err := g.Aggregate(ctx, Movies, Pipeline{SortBy("movie_title", false), Skip(1), Limit(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cars 2", "Joker"}, titles(t, docs))

	docs, err = g.Aggregate(ctx, Movies, Pipeline{Match(Contains("movie_title", "cars")), SortBy("scr_room_number", true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cars", "Cars 2"}, titles(t, docs))

	docs, err = g.Aggregate(ctx, Movies, Pipeline{Skip(10)})
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = g.Aggregate(ctx, Movies, Pipeline{Limit(1), Match(All())})
	assert.ErrorIs(t, err, ErrUnsupportedPipeline)
}

func TestMemoryAggregateHugeLimit(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	seedMovies(t, g)

	all, err := g.Find(ctx, Movies, All())
	require.NoError(t, err)
	require.Greater(t, len(all), 1)

	docs, err := g.Aggregate(ctx, Movies, Pipeline{Skip(1), Limit(math.MaxInt64)})
	require.NoError(t, err)
	assert.Equal(t, titles(t, all[1:]), titles(t, docs))

	docs, err = g.Aggregate(ctx, Movies, Pipeline{Skip(math.MaxInt64), Limit(math.MaxInt64)})
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = g.Aggregate(ctx, Movies, Pipeline{Limit(0)})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryReadOnlySeesOneState(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	seedMovies(t, g)

	err := g.ReadOnly(ctx, func(ctx context.Context, r Reader) error {
		movies, err := r.Find(ctx, Movies, All())
		require.NoError(t, err)
		n, err := r.Count(ctx, Movies, All())
		require.NoError(t, err)
		assert.Equal(t, int64(len(movies)), n)
		return nil
	})
	require.NoError(t, err)
}

func TestUnknownCollection(t *testing.T) {
	g := NewMemory()
	_, err := g.FindByID(context.Background(), Collection("seats"), uuid.New())
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestCompilePipeline(t *testing.T) {
	pl, err := Pipeline{Match(Eq("a", 1)), Match(Eq("b", 2)), SortBy("a", true), Skip(5), Limit(10)}.compile()
	require.NoError(t, err)
	assert.Equal(t, opAnd, pl.filter.op)
	assert.Equal(t, "a", pl.sort)
	assert.True(t, pl.desc)
	assert.Equal(t, int64(5), pl.skip)
	assert.True(t, pl.limited)

	_, err = Pipeline{SortBy("a", false), SortBy("b", false)}.compile()
	assert.ErrorIs(t, err, ErrUnsupportedPipeline)
	_, err = Pipeline{Limit(-1)}.compile()
	assert.ErrorIs(t, err, ErrUnsupportedPipeline)
}

func TestSelectQuery(t *testing.T) {
	pl, err := Pipeline{
		Match(And(Eq("movie_id", "abc"), Contains("movie_title", "50%_off"), In("user_id", "u1", "u2"))),
		SortBy("movie_title", false),
		Skip(20),
		Limit(10),
	}.compile()
	require.NoError(t, err)

	query, args, err := selectQuery(Tickets, pl)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT doc FROM tickets WHERE (doc @> $1::jsonb) AND (doc->>($2::text) ILIKE $3 ESCAPE '\') AND (doc->>($4::text) = ANY($5::text[]))`+
			` ORDER BY doc->($6::text) ASC NULLS FIRST, seq ASC OFFSET $7 LIMIT $8`,
		query)
	assert.Equal(t, []any{
		`{"movie_id":"abc"}`,
		"movie_title", `%50\%\_off%`,
		"user_id", []string{"u1", "u2"},
		"movie_title", int64(20), int64(10),
	}, args)

	query, args, err = selectQuery(Movies, plan{filter: In("id")})
	require.NoError(t, err)
	assert.Equal(t, "SELECT doc FROM movies WHERE FALSE ORDER BY seq ASC", query)
	assert.Empty(t, args)
}

func TestInstrumentCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	again, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, m.ops, again.ops)

	g := Instrument(NewMemory(), m)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, g.Insert(ctx, Movies, id, movieDoc(t, id, "Cars", 1)))
	assert.ErrorIs(t, g.Delete(ctx, Movies, uuid.New()), ErrNoMatch)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("movies", "insert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("movies", "delete", "no_match")))
}
