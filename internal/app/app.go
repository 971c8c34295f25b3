// Package app assembles the chatty components from a LocalConfig.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/chatty/internal/config"
	"github.com/felixgeelhaar/chatty/internal/curriculum"
	"github.com/felixgeelhaar/chatty/internal/events"
	"github.com/felixgeelhaar/chatty/internal/learner"
	"github.com/felixgeelhaar/chatty/internal/progression"
	"github.com/felixgeelhaar/chatty/internal/session"
	"github.com/felixgeelhaar/chatty/internal/storage/postgres"
	"github.com/felixgeelhaar/chatty/internal/storage/redis"
	"github.com/felixgeelhaar/chatty/internal/storage/sqlite"
	"github.com/felixgeelhaar/chatty/internal/validator"
)

// App holds the wired service and the resources it owns
type App struct {
	Config     *config.LocalConfig
	Curriculum *curriculum.Registry
	Service    *session.Service

	closers []func() error
}

// New builds the curriculum, learner store, publisher and session service.
// Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.LocalConfig) (*App, error) {
	a := &App{Config: cfg}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	registry, err := curriculum.Open(cfg.Curriculum.Path)
	if err != nil {
		return fmt.Errorf("load curriculum: %w", err)
	}
	a.Curriculum = registry
	stats := registry.Stats()
	slog.Info("curriculum loaded", "version", stats.Version, "levels", stats.LevelCount, "lessons", stats.LessonCount)

	store, err := a.openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s learner store: %w", cfg.Storage.Backend, err)
	}

	engine := progression.NewEngine(registry, validator.NewKeywordValidator())
	a.Service = session.NewService(engine, store)

	if cfg.Events.Enabled {
		publisher, err := a.openPublisher(cfg.Events)
		if err != nil {
			return fmt.Errorf("open event publisher: %w", err)
		}
		a.Service.SetPublisher(publisher)
	}

	return nil
}

func (a *App) openStore(ctx context.Context, cfg config.StorageConfig) (learner.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory learner store; progress is lost on exit")
		return learner.NewMemoryStore(), nil

	case config.BackendFile:
		store, err := learner.NewFileStore(cfg.File.Dir)
		if err != nil {
			return nil, err
		}
		n, err := store.Count(ctx)
		if err != nil {
			return nil, err
		}
		slog.Info("learner store opened", "backend", cfg.Backend, "path", store.Path(), "learners", n)
		return store, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		slog.Info("learner store opened", "backend", cfg.Backend, "path", db.Path())
		return sqlite.NewLearnerStore(db), nil

	case config.BackendPostgres:
		pgCfg := postgres.DefaultConfig(cfg.Postgres.URL)
		if cfg.Postgres.MaxConns > 0 {
			pgCfg.MaxConns = int32(cfg.Postgres.MaxConns)
		}
		conn, err := postgres.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { conn.Close(); return nil })
		if err := conn.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		slog.Info("learner store opened", "backend", cfg.Backend)
		return postgres.NewLearnerStore(conn), nil

	case config.BackendRedis:
		redisCfg := redis.DefaultConfig(cfg.Redis.URL)
		if cfg.Redis.KeyPrefix != "" {
			redisCfg.KeyPrefix = cfg.Redis.KeyPrefix
		}
		store, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		slog.Info("learner store opened", "backend", cfg.Backend, "prefix", redisCfg.KeyPrefix)
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

func (a *App) openPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	conn, err := events.NewConnection(cfg.RabbitMQURL, cfg.Queue)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)

	slog.Info("progress events enabled", "queue", conn.Queue())
	return events.NewResilientPublisher(events.NewAMQPPublisher(conn), events.ResilientConfig{
		FailureThreshold: cfg.FailureThreshold,
		OpenTimeout:      cfg.OpenTimeout(),
		PublishTimeout:   cfg.PublishTimeout(),
	}), nil
}

// Close releases resources in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
