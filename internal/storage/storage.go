package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"roomrent-dashboard/internal/config"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/repository"
	"roomrent-dashboard/internal/repository/firestore"
	"roomrent-dashboard/internal/repository/memory"
	"roomrent-dashboard/internal/repository/postgres"
)

// Backend is an opened room store together with whatever it owns.
type Backend struct {
	Store repository.RoomStore
	Type  string

	closers []func() error
}

// Close releases the store and then the resources it was built on.
func (b *Backend) Close() error {
	var errs []error
	if err := b.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects the store selected by cfg.Store.Type.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Store.Type {
	case config.StoreTypeFirestore:
		return openFirestore(ctx, cfg)
	case config.StoreTypePostgres:
		return openPostgres(ctx, cfg)
	case config.StoreTypeMemory:
		logger.Warn("Using in-memory room store; data is lost on restart")
		return &Backend{Store: memory.NewStore(), Type: config.StoreTypeMemory}, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %q", cfg.Store.Type)
	}
}

func openFirestore(ctx context.Context, cfg *config.Config) (*Backend, error) {
	fs := cfg.Store.Firestore
	logger.Info("Connecting to Firestore...", "project_id", fs.ProjectID, "collection", cfg.Store.Collection)
	store, err := firestore.Open(ctx, firestore.Config{
		ProjectID:       fs.ProjectID,
		CredentialsFile: fs.CredentialsFile,
		APIKey:          fs.APIKey,
		Collection:      cfg.Store.Collection,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Firestore client ready")
	return &Backend{Store: store, Type: config.StoreTypeFirestore}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Backend, error) {
	pg := cfg.Store.Postgres
	logger.Info("Connecting to database...", "host", pg.Host, "port", pg.Port, "database", pg.Database, "user", pg.User)

	connStr := cfg.GetDatabaseConnectionString()
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db, connStr)
	if pg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Rooms schema is up to date")
	}
	return &Backend{Store: store, Type: config.StoreTypePostgres, closers: []func() error{db.Close}}, nil
}
