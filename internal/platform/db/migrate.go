package db

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies every *.sql file in fsys not yet recorded in
// schema_migrations, in name order, each in its own transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename   TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return 0, fmt.Errorf("platform/db: create schema_migrations: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("platform/db: list migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, err
		}
		applied[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	names, err := pending(fsys, applied)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, name := range names {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return ran, fmt.Errorf("platform/db: read %s: %w", name, err)
		}
		err = WithTx(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("platform/db: apply %s: %w", name, err)
		}
		logger.InfoContext(ctx, "migration applied", slog.String("file", name))
		ran++
	}
	return ran, nil
}

// pending lists the *.sql files in fsys that are not in applied, sorted by
// name. Reset scripts are never applied automatically.
func pending(fsys fs.FS, applied map[string]bool) ([]string, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := names[:0]
	for _, name := range names {
		if applied[name] || strings.Contains(name, "reset") {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}
