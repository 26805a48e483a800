package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = fmt.Errorf("idempotent request already processed: %w", ErrConflict)

// IdempotencyStore persists processed request keys per module.
// Without a pool it keeps keys in process memory.
type IdempotencyStore struct {
	pool *pgxpool.Pool

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewIdempotencyStore constructs the store. pool may be nil.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool, seen: make(map[string]time.Time)}
}

// Claim records key for module, failing when it was already claimed.
func (s *IdempotencyStore) Claim(ctx context.Context, module, key string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	if s.pool == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		scoped := module + ":" + key
		if _, ok := s.seen[scoped]; ok {
			return ErrIdempotencyConflict
		}
		s.seen[scoped] = time.Now()
		return nil
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, NOW())`, key, module)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Release removes a key so a failed request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, module, key string) error {
	if s == nil || key == "" {
		return nil
	}
	if s.pool == nil {
		s.mu.Lock()
		delete(s.seen, module+":"+key)
		s.mu.Unlock()
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE module=$1 AND key=$2`, module, key)
	return err
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	if s.pool == nil {
		s.mu.Lock()
		for k, at := range s.seen {
			if at.Before(cutoff) {
				delete(s.seen, k)
			}
		}
		s.mu.Unlock()
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}
