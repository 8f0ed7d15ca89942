package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cinema-core/internal/versiontoken"
	"cinema-core/internal/wire"
	"cinema-core/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.logger.Info("Starting application",
				zap.String("app", a.config.App.Name),
				zap.String("port", a.config.App.Port),
				zap.Bool("debug", a.config.App.Debug),
				zap.String("store", a.config.Store.Driver),
				zap.String("lock", a.config.Lock.Driver),
			)

			rt, err := a.bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if migrate && rt.db != nil {
				if _, err := database.Migrate(ctx, rt.db, a.logger); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			signer, err := versiontoken.NewSigner([]byte(a.config.Token.Secret))
			if err != nil {
				return fmt.Errorf("VERSION_TOKEN_SECRET: %w", err)
			}

			application, err := wire.Wiring(wire.Deps{
				Repo:     rt.repo,
				Tokens:   signer,
				Locker:   rt.locker,
				Registry: rt.registry,
				Config:   a.config,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}

			return APIServer(ctx, application.Router, a.config.App.Port, a.logger)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations before serving")
	return cmd
}

// APIServer serves handler on port until ctx is done, then shuts down
// gracefully.
func APIServer(ctx context.Context, handler http.Handler, port string, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
