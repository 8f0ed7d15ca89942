package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cinema-core/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "bearer-secret-for-tests"

func callerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := utils.GetRoleFromContext(r.Context())
		w.Write([]byte(utils.GetCallerFromContext(r.Context()) + "|" + role))
	})
}

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	h := Auth(testSecret, zap.NewNop())(callerEcho())

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("anonymous without header", func(t *testing.T) {
		rec := serve("")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, utils.AnonymousCaller+"|", rec.Body.String())
	})

	t.Run("valid token", func(t *testing.T) {
		token := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"sub":  "someCaller1",
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		rec := serve("Bearer " + token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "someCaller1|admin", rec.Body.String())
	})

	t.Run("wrong key", func(t *testing.T) {
		token := signed(t, jwt.SigningMethodHS256, []byte("another-secret"), jwt.MapClaims{"sub": "someCaller1"})
		assert.Equal(t, http.StatusUnauthorized, serve("Bearer "+token).Code)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token := signed(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "someCaller1"})
		assert.Equal(t, http.StatusUnauthorized, serve("Bearer "+token).Code)
	})

	t.Run("expired", func(t *testing.T) {
		token := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"sub": "someCaller1",
			"exp": time.Now().Add(-time.Minute).Unix(),
		})
		assert.Equal(t, http.StatusUnauthorized, serve("Bearer "+token).Code)
	})

	t.Run("no subject", func(t *testing.T) {
		token := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"role": "admin"})
		assert.Equal(t, http.StatusUnauthorized, serve("Bearer "+token).Code)
	})

	t.Run("not a bearer header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve("Basic dXNlcjpwYXNz").Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	h := CORS()(callerEcho())
	req := httptest.NewRequest(http.MethodOptions, "/api/movies/1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ETag", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "If-Match")
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	mw, err := Metrics(reg)
	require.NoError(t, err)

	// registering again on the same registry reuses the collectors
	_, err = Metrics(reg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(mw)
	r.Get("/api/movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/movies/"+id, nil))
	}

	count, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecover(t *testing.T) {
	h := Recover(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
