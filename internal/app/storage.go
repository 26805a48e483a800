package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/books/memstore"
	"github.com/odyssey-erp/odyssey-books/internal/books/pgstore"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/migrations"
)

// Storage is the opened persistence backend. Pool is nil for memory storage.
type Storage struct {
	Store books.Store
	Pool  *pgxpool.Pool
}

// Close releases the pool, if any.
func (s Storage) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenStorage opens the backend named by cfg.Storage. Postgres storage is
// migrated before it is returned.
func OpenStorage(ctx context.Context, cfg *Config, logger *slog.Logger) (Storage, error) {
	if cfg.Storage == StorageMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		return Storage{Store: memstore.New()}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return Storage{}, err
	}
	applied, err := db.Migrate(ctx, pool, migrations.Files, logger)
	if err != nil {
		pool.Close()
		return Storage{}, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("storage ready", slog.String("backend", StoragePostgres), slog.Int("migrations_applied", applied))
	return Storage{Store: pgstore.New(pool), Pool: pool}, nil
}
