// Package app wires configuration, storage, caching, services and the HTTP
// server into one Application with a start and shutdown lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/events"
	"taskboard/internal/logging"
	"taskboard/internal/monitoring"
	"taskboard/internal/repositories"
	"taskboard/internal/repositories/mongorepo"
	"taskboard/internal/server"
	"taskboard/internal/services"
	"taskboard/internal/store"
)

// ShutdownTimeout bounds the graceful drain of in-flight requests.
const ShutdownTimeout = 30 * time.Second

// Application holds all application dependencies and state.
type Application struct {
	Config *config.Config
	Log    *logrus.Logger

	DB    *database.DatabasePool
	Mongo *mongorepo.Store
	Cache *cache.MultiLevelCache
	Bus   *events.Bus

	Collections *store.Collections
	Services    *services.Services
	Router      *gin.Engine
	Server      *http.Server

	stats *services.StatsServiceImpl
}

// New connects to the configured store and builds the full object graph.
// Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Application, error) {
	if log == nil {
		log = logging.Logger
	}
	app := &Application{Config: cfg, Log: log, Bus: events.NewBus()}

	log.WithFields(logrus.Fields{
		"environment": cfg.Server.Environment,
		"driver":      cfg.Database.Driver,
	}).Info("initializing taskboard")

	if err := app.openStore(ctx); err != nil {
		app.Close()
		return nil, err
	}

	statsCache := app.openCache()

	app.Services = services.New(app.Collections, services.Options{Bus: app.Bus, Logger: log}, statsCache)
	if impl, ok := app.Services.Stats.(*services.StatsServiceImpl); ok {
		app.stats = impl
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := server.Options{
		Services:       app.Services,
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Static:         cfg.Static,
	}
	if app.Cache != nil {
		opts.Cache = app.Cache
		opts.Warmer = app.Cache.GetWarmer()
	}
	app.Router = server.NewRouter(opts)

	log.Info("all services initialized")
	return app, nil
}

func (app *Application) openStore(ctx context.Context) error {
	cfg := app.Config.Database

	if cfg.Driver == config.DriverMongo {
		st, err := mongorepo.Open(ctx, cfg.MongoURI, cfg.Name, app.Log)
		if err != nil {
			return fmt.Errorf("mongo connection failed: %w", err)
		}
		app.Mongo = st
		app.Collections = st.Collections()
		monitoring.RegisterHealthCheck("database", st.Health)
		return nil
	}

	dsn := cfg.DSN
	driver := database.DriverSQLite
	if cfg.Driver == config.DriverPostgres {
		dsn = cfg.PostgresDSN()
		driver = database.DriverPostgres
	}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          driver,
		DSN:             dsn,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		LogLevel:        logging.GormLevel(app.Config.Log.Level),
		Logger:          app.Log,
	})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	app.DB = pool

	if err := repositories.Bootstrap(pool.DB, &repositories.BootstrapConfig{
		MaxRetries: cfg.ConnectRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     app.Log,
	}); err != nil {
		return fmt.Errorf("database bootstrap failed: %w", err)
	}

	app.Collections = repositories.NewCollections(pool.DB)
	monitoring.RegisterHealthCheck("database", func(ctx context.Context) error {
		return pool.Health()
	})
	return nil
}

// openCache builds the stats cache when enabled. A redis tier that cannot
// be reached is logged and skipped; the in-memory tier still serves.
func (app *Application) openCache() *services.StatsCacheOptions {
	cfg := app.Config
	if !cfg.Cache.Enabled {
		return nil
	}

	var redisCache *cache.RedisCache
	if cfg.Cache.UseRedis {
		rc, err := cache.NewRedisCache(&cache.CacheConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cache.DefaultCacheConfig().KeyPrefix,
			OpTimeout:    cache.DefaultCacheConfig().OpTimeout,
		})
		if err != nil {
			app.Log.WithError(err).Warn("redis unavailable, continuing with memory cache only")
		} else {
			redisCache = rc
			monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
				return rc.Health()
			})
		}
	}

	app.Cache = cache.NewMultiLevelCache(redisCache, &cache.WarmupStrategy{
		BatchSize:      10,
		ConcurrentJobs: cfg.Cache.WarmWorkers,
	})
	app.Log.WithField("redis", redisCache != nil).Info("stats cache initialized")

	return &services.StatsCacheOptions{
		Cache:  app.Cache,
		Warmer: app.Cache.GetWarmer(),
		TTL:    cfg.Cache.StatsTTL,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// releases every resource.
func (app *Application) Run(ctx context.Context) error {
	addr := app.Config.GetServerAddr()
	app.Server = &http.Server{
		Addr:         addr,
		Handler:      app.Router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Log.WithField("addr", addr).Info("server starting")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		app.Close()
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.Log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server forced to shutdown: %w", err)
	}
	app.Close()
	app.Log.Info("server stopped")
	return shutdownErr
}

// Close releases the cache, the event subscriptions and the store. It is
// safe on a partially built Application.
func (app *Application) Close() {
	if app.stats != nil {
		app.stats.Close()
		app.stats = nil
	}

	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			app.Log.WithError(err).Warn("error closing cache")
		}
		app.Cache = nil
	}

	if app.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Mongo.Close(ctx); err != nil {
			app.Log.WithError(err).Warn("error closing mongo")
		}
		app.Mongo = nil
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Log.WithError(err).Warn("error closing database")
		}
		app.DB = nil
	}
}
