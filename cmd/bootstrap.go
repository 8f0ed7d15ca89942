package cmd

import (
	"context"
	"fmt"

	"cinema-core/internal/data/lock"
	"cinema-core/internal/data/repository"
	"cinema-core/internal/data/store"
	"cinema-core/pkg/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// runtime is the process-scoped infrastructure built from the config.
type runtime struct {
	db       database.PgxIface
	lockDB   database.PgxIface
	gateway  store.Gateway
	repo     *repository.Repository
	locker   lock.Locker
	registry *prometheus.Registry
	rdb      *redis.Client
}

func (a *app) bootstrap(ctx context.Context) (*runtime, error) {
	rt := &runtime{}
	log := a.logger

	switch a.config.Store.Driver {
	case "postgres":
		db, err := database.InitDB(ctx, a.config.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		rt.db = db
		rt.gateway = store.NewPostgres(db, log)
		log.Info("Database connected successfully",
			zap.String("host", a.config.Database.Host),
			zap.String("database", a.config.Database.Name),
		)
	case "memory":
		rt.gateway = store.NewMemory()
		log.Warn("Using in-memory store; data is lost on exit")
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", a.config.Store.Driver)
	}

	if a.config.Metrics.Enabled {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := store.NewMetrics(rt.registry)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("register store metrics: %w", err)
		}
		rt.gateway = store.Instrument(rt.gateway, metrics)
	}

	locker, err := a.newLocker(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.locker = locker
	rt.repo = repository.NewRepository(rt.gateway, log)
	return rt, nil
}

func (a *app) newLocker(ctx context.Context, rt *runtime) (lock.Locker, error) {
	cfg := a.config.Lock
	switch cfg.Driver {
	case "postgres":
		if rt.db == nil {
			return nil, fmt.Errorf("LOCK_DRIVER=postgres needs STORE_DRIVER=postgres")
		}
		// lock holders keep a connection while they use the store, so they
		// must not draw from the store's pool
		dbConfig := a.config.Database
		dbConfig.MaxConns = cfg.MaxConns
		lockDB, err := database.InitDB(ctx, dbConfig)
		if err != nil {
			return nil, fmt.Errorf("connect lock pool: %w", err)
		}
		rt.lockDB = lockDB
		return lock.NewPostgres(lockDB, cfg.Wait, a.logger), nil
	case "redis":
		rt.rdb = redis.NewClient(&redis.Options{
			Addr:     a.config.Redis.Addr,
			Password: a.config.Redis.Password,
			DB:       a.config.Redis.DB,
		})
		if err := rt.rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return lock.NewRedis(rt.rdb, cfg.TTL, cfg.Wait, a.logger), nil
	case "local":
		return lock.NewLocal(cfg.Wait), nil
	default:
		return nil, fmt.Errorf("unknown LOCK_DRIVER %q", cfg.Driver)
	}
}

// Close releases the store (and with it the database pool), the lock pool
// and Redis.
func (rt *runtime) Close() {
	if rt.lockDB != nil {
		rt.lockDB.Close()
	}
	if rt.rdb != nil {
		_ = rt.rdb.Close()
	}
	if rt.gateway != nil {
		rt.gateway.Close()
	}
}
