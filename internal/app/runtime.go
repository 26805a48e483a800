package app

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/observability"
	"github.com/odyssey-erp/odyssey-books/internal/outstanding"
	"github.com/odyssey-erp/odyssey-books/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/statements"
	"github.com/odyssey-erp/odyssey-books/internal/vouchers"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}

// Services bundles the domain services shared by the API server and the worker.
type Services struct {
	Storage     Storage
	Cache       *cache.Versioned
	Metrics     *observability.Metrics
	Audit       *shared.AuditLogger
	Idempotency *shared.IdempotencyStore

	MasterData  *masterdata.Service
	Vouchers    *vouchers.Service
	Ledger      *ledger.Service
	Statements  *statements.Service
	Outstanding *outstanding.Service
}

// NewServices wires the domain services over storage. redisClient may be nil,
// which disables report caching.
func NewServices(cfg *Config, storage Storage, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	reports := cache.NewVersioned(redisClient, cfg.ReportCacheTTL)
	audit := shared.NewAuditLogger(storage.Pool, logger)

	master := masterdata.NewService(storage.Store, audit, reports, logger)

	posting := vouchers.NewService(storage.Store, audit, reports, logger)
	posting.AllowNegativeStock(cfg.AllowNegativeStock)
	if metrics != nil {
		posting.WithMetrics(metrics)
	}

	stmts := statements.NewService(storage.Store, reports, logger)
	if metrics != nil {
		stmts.WithMetrics(metrics)
	}

	return &Services{
		Storage:     storage,
		Cache:       reports,
		Metrics:     metrics,
		Audit:       audit,
		Idempotency: shared.NewIdempotencyStore(storage.Pool),
		MasterData:  master,
		Vouchers:    posting,
		Ledger:      ledger.NewService(storage.Store, logger),
		Statements:  stmts,
		Outstanding: outstanding.NewService(storage.Store, logger),
	}
}

// Bootstrap seeds the default chart of accounts when configured to.
func (s *Services) Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	if !cfg.SeedChart {
		return nil
	}
	created, err := s.MasterData.SeedChart(ctx)
	if err != nil {
		return err
	}
	if len(created) > 0 {
		logger.Info("seeded chart of accounts", slog.Int("accounts", len(created)))
	}
	return nil
}
