package wire

import (
	"context"
	"net/http"
	"time"

	"cinema-core/internal/adaptor"
	"cinema-core/internal/data/lock"
	"cinema-core/internal/data/repository"
	"cinema-core/internal/usecase"
	"cinema-core/internal/versiontoken"
	"cinema-core/pkg/middleware"
	"cinema-core/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Deps are the process-scoped values the application is built from.
type Deps struct {
	Repo     *repository.Repository
	Tokens   versiontoken.Protocol
	Locker   lock.Locker
	Registry *prometheus.Registry
	Config   *utils.Config
	Logger   *zap.Logger
}

// Wiring builds the services, handlers and router.
func Wiring(deps Deps) (*App, error) {
	service := usecase.NewService(deps.Repo, deps.Tokens, deps.Locker, deps.Logger)
	handler := adaptor.NewHandler(service, deps.Config.App.PasswordCost, deps.Logger)

	router, err := setupRouter(handler, deps)
	if err != nil {
		return nil, err
	}

	return &App{
		Router:  router,
		Service: service,
	}, nil
}

func setupRouter(handler *adaptor.Handler, deps Deps) (*chi.Mux, error) {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.CORS())

	if deps.Config.Metrics.Enabled && deps.Registry != nil {
		metrics, err := middleware.Metrics(deps.Registry)
		if err != nil {
			return nil, err
		}
		r.Use(metrics)
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Repo.Ping(ctx); err != nil {
			deps.Logger.Warn("Health check failed", zap.Error(err))
			utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "Store unavailable", nil, nil)
			return
		}
		utils.ResponseSuccess(w, "OK", nil)
	})

	r.Route("/api", func(r chi.Router) {
		if deps.Config.JWT.Secret != "" {
			r.Use(middleware.Auth(deps.Config.JWT.Secret, deps.Logger))
		}

		wireMovie(r, handler.Movie)
		wireTicket(r, handler.Ticket)
		wireUser(r, handler.User)
	})

	return r, nil
}
