package wire

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cinema-core/internal/data/lock"
	"cinema-core/internal/data/repository"
	"cinema-core/internal/data/store"
	"cinema-core/internal/dto/response"
	"cinema-core/internal/versiontoken"
	"cinema-core/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const jwtSecret = "bearer-secret-for-tests"

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	server *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := store.NewMetrics(reg)
	require.NoError(t, err)

	gateway := store.Instrument(store.NewMemory(), metrics)
	t.Cleanup(gateway.Close)

	signer, err := versiontoken.NewSigner([]byte("version-token-key-for-tests"))
	require.NoError(t, err)

	log := zap.NewNop()
	app, err := Wiring(Deps{
		Repo:     repository.NewRepository(gateway, log),
		Tokens:   signer,
		Locker:   lock.NewLocal(time.Second),
		Registry: reg,
		Config: &utils.Config{
			App:     utils.AppConfig{PasswordCost: 4},
			JWT:     utils.JWTConfig{Secret: jwtSecret},
			Metrics: utils.MetricsConfig{Enabled: true},
		},
		Logger: log,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)
	return &testServer{t: t, server: srv}
}

func bearer(t *testing.T, login string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": login,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (s *testServer) do(method, path string, body any, headers map[string]string) (*http.Response, envelope) {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.server.URL+path, rd)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.server.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (s *testServer) createMovie(title string) response.MovieResponse {
	s.t.Helper()
	resp, env := s.do(http.MethodPost, "/api/movies", map[string]any{
		"title": title, "base_price": 45.75, "screening_room": 1, "seat_capacity": 100,
	}, nil)
	require.Equal(s.t, http.StatusCreated, resp.StatusCode, env.Message)
	return decode[response.MovieResponse](s.t, env)
}

func (s *testServer) createUser(role, login string) response.UserResponse {
	s.t.Helper()
	resp, env := s.do(http.MethodPost, "/api/users/"+role, map[string]any{
		"login": login, "password": "password1",
	}, nil)
	require.Equal(s.t, http.StatusCreated, resp.StatusCode, env.Message)
	return decode[response.UserResponse](s.t, env)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Status)

	s.createMovie("Pulp Fiction")

	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/metrics", nil)
	require.NoError(t, err)
	mresp, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer mresp.Body.Close()
	body, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, mresp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
	assert.Contains(t, string(body), `store_operations_total{collection="movies",op="insert",outcome="ok"} 1`)
}

func TestMovieVersionedUpdate(t *testing.T) {
	s := newTestServer(t)
	movie := s.createMovie("Joker")
	path := "/api/movies/" + movie.ID
	alice := map[string]string{"Authorization": bearer(t, "aliceLogin")}

	resp, _ := s.do(http.MethodGet, path, nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	update := map[string]any{"title": "Joker 2", "base_price": 50, "screening_room": 3, "seat_capacity": 75}

	resp, _ = s.do(http.MethodPut, path, update, alice)
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)

	bob := map[string]string{"Authorization": bearer(t, "bobLogin1"), "If-Match": etag}
	resp, _ = s.do(http.MethodPut, path, update, bob)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	withToken := map[string]string{"Authorization": alice["Authorization"], "If-Match": etag}
	resp, env := s.do(http.MethodPut, path, update, withToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, "Joker 2", decode[response.MovieResponse](t, env).Title)

	resp, _ = s.do(http.MethodPut, path, update, withToken)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, path, nil, nil)
	assert.NotEqual(t, etag, resp.Header.Get("ETag"))
}

func TestBadBearerIsRejected(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.do(http.MethodGet, "/api/movies", nil, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTicketLifecycle(t *testing.T) {
	s := newTestServer(t)
	movie := s.createMovie("Pulp Fiction")
	user := s.createUser("client", "clientLogin1")

	resp, env := s.do(http.MethodPost, "/api/tickets", map[string]any{
		"screening_time": "2026-10-19T20:30:00Z",
		"ticket_type":    "reduced",
		"user_id":        user.ID,
		"movie_id":       "00000000-0000-4000-8000-000000000001",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, env.Message)

	resp, env = s.do(http.MethodPost, "/api/tickets", map[string]any{
		"screening_time": "2026-10-19T20:30:00Z",
		"ticket_type":    "reduced",
		"user_id":        user.ID,
		"movie_id":       movie.ID,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	ticket := decode[response.TicketResponse](t, env)
	assert.Equal(t, 34.31, ticket.FinalPrice)
	require.NotNil(t, ticket.Movie)
	assert.Equal(t, "Pulp Fiction", ticket.Movie.Title)

	resp, _ = s.do(http.MethodDelete, "/api/movies/"+movie.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(http.MethodDelete, "/api/users/client/"+user.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, env = s.do(http.MethodGet, "/api/movies/"+movie.ID+"/tickets", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]response.TicketResponse](t, env), 1)

	resp, env = s.do(http.MethodGet, "/api/users/client/"+user.ID+"/tickets", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]response.TicketResponse](t, env), 1)

	ticketPath := "/api/tickets/" + ticket.ID
	resp, _ = s.do(http.MethodGet, ticketPath, nil, nil)
	etag := resp.Header.Get("ETag")

	resp, _ = s.do(http.MethodPut, ticketPath, map[string]any{
		"screening_time": "2026-10-20T20:30:00Z",
		"user_id":        user.ID,
		"movie_id":       movie.ID,
		"final_price":    1,
	}, map[string]string{"If-Match": etag})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = s.do(http.MethodPut, ticketPath, map[string]any{
		"screening_time": "2026-10-20T20:30:00Z",
		"user_id":        user.ID,
		"movie_id":       movie.ID,
	}, map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, 34.31, decode[response.TicketResponse](t, env).FinalPrice)

	resp, _ = s.do(http.MethodDelete, ticketPath, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(http.MethodDelete, "/api/movies/"+movie.ID, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/api/movies/"+movie.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUserVariants(t *testing.T) {
	s := newTestServer(t)
	client := s.createUser("client", "abcdefgh")
	assert.True(t, client.Active)
	assert.Equal(t, "client", client.Role)

	resp, _ := s.do(http.MethodPost, "/api/users/staff", map[string]any{"login": "abcdefgh", "password": "password1"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, env := s.do(http.MethodPost, "/api/users/admin", map[string]any{"login": "ab-cd", "password": "password1"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", env.Message)

	resp, _ = s.do(http.MethodGet, "/api/users/manager", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	staff := s.createUser("staff", "staffLogin1")
	resp, _ = s.do(http.MethodDelete, "/api/users/admin/"+staff.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/api/users/client/"+staff.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/api/users/staff/"+staff.ID, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = s.do(http.MethodGet, "/api/users/staff/login/staffLogin1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, staff.ID, decode[response.UserResponse](t, env).ID)

	resp, env = s.do(http.MethodGet, "/api/users/client?login=ABCD", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]response.UserResponse](t, env), 1)
	assert.NotContains(t, string(env.Data), "password")
}

func TestUserUpdateAndActivation(t *testing.T) {
	s := newTestServer(t)
	user := s.createUser("client", "clientLogin1")
	path := "/api/users/client/" + user.ID

	resp, _ := s.do(http.MethodGet, path, nil, nil)
	etag := resp.Header.Get("ETag")

	resp, env := s.do(http.MethodPut, path, map[string]any{"login": "renamedLogin1"}, map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, "renamedLogin1", decode[response.UserResponse](t, env).Login)

	for i := 0; i < 2; i++ {
		resp, env = s.do(http.MethodPost, "/api/accounts/"+user.ID+"/deactivate", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, decode[response.UserResponse](t, env).Active)
	}

	resp, _ = s.do(http.MethodPost, "/api/accounts/00000000-0000-4000-8000-000000000001/activate", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/api/accounts/not-a-uuid/activate", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMovieListing(t *testing.T) {
	s := newTestServer(t)
	for _, title := range []string{"Pulp Fiction", "Cars", "Joker"} {
		s.createMovie(title)
	}

	resp, env := s.do(http.MethodGet, "/api/movies?page=1&per_page=2", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[response.PaginatedResponse[response.MovieResponse]](t, env)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Cars", page.Data[0].Title)

	resp, env = s.do(http.MethodGet, "/api/movies?title=joker", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]response.MovieResponse](t, env), 1)

	resp, env = s.do(http.MethodGet, "/api/movies", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]response.MovieResponse](t, env), 3)
}
