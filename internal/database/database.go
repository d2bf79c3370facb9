// Package database opens the document store backend selected by DATA_SOURCE
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wingmentor/wingmentor-api/config"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/docstore/memory"
	mongostore "github.com/wingmentor/wingmentor-api/internal/docstore/mongo"
	pgstore "github.com/wingmentor/wingmentor-api/internal/docstore/postgres"
	"github.com/wingmentor/wingmentor-api/internal/docstore/sqlite"
	"github.com/wingmentor/wingmentor-api/pkg/db"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"github.com/wingmentor/wingmentor-api/pkg/mongodb"
	"github.com/wingmentor/wingmentor-api/pkg/retry"
	"go.uber.org/zap"
)

// Handle is an open, instrumented store plus whatever owns its connections
type Handle struct {
	Store   docstore.Store
	Backend string

	closers []func(ctx context.Context) error
}

// Close closes the store and then its connections
func (h *Handle) Close(ctx context.Context) error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		errs = append(errs, h.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// Open connects to the configured backend. Postgres schemas are migrated
// first when AutoMigrate is set; Mongo indexes are always ensured.
func Open(ctx context.Context, cfg config.StoreConfig, appName string) (*Handle, error) {
	h := &Handle{Backend: cfg.DataSource}

	var store docstore.Store
	switch cfg.DataSource {
	case config.DataSourceMemory:
		logger.Warn("Using the in-memory document store; data is lost on exit")
		store = memory.New()

	case config.DataSourcePostgres:
		if cfg.AutoMigrate {
			err := retry.Do(ctx, retry.StoreConnectConfig(), "postgres_migrate", func() error {
				return db.RunMigrations(cfg.DatabaseURL, cfg.DatabaseCACert, cfg.MigrationsPath)
			})
			if err != nil {
				return nil, err
			}
			logger.Info("Database migrations applied")
		}

		pool, err := retry.DoWithResult(ctx, retry.StoreConnectConfig(), "postgres_connect", func() (*pgxpool.Pool, error) {
			return db.NewPool(ctx, db.PoolConfig{
				URL:        cfg.DatabaseURL,
				CACertPath: cfg.DatabaseCACert,
				MaxConns:   cfg.MaxConns,
				MinConns:   cfg.MinConns,
			})
		})
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, func(context.Context) error {
			db.Close(pool)
			return nil
		})
		store = pgstore.New(pool)

	case config.DataSourceMongo:
		client, database, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			AppName:  appName,
		})
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, func(ctx context.Context) error {
			mongodb.Disconnect(ctx, client)
			return nil
		})
		ms := mongostore.New(database, mongostore.Config{})
		if err := ms.EnsureIndexes(ctx); err != nil {
			_ = h.Close(ctx)
			return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
		store = ms

	case config.DataSourceSQLite:
		ss, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = ss

	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}

	h.closers = append(h.closers, store.Close)
	h.Store = docstore.Instrument(store, cfg.DataSource)

	logger.Info("Document store ready", zap.String("backend", cfg.DataSource))
	return h, nil
}
