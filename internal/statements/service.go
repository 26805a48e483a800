package statements

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Report names used in cache keys and metrics.
const (
	ReportProfitAndLoss = "profit_loss"
	ReportBalanceSheet  = "balance_sheet"
	ReportGST           = "gst"
	ReportTrialBalance  = "trial_balance"
	ReportStock         = "stock"
)

// Build sources reported to the recorder.
const (
	SourceCache = "cache"
	SourceBuild = "build"
)

// ReportCache stores built reports under versioned keys.
type ReportCache interface {
	Enabled() bool
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) (bool, error)
}

// ReportRecorder counts report builds by source.
type ReportRecorder interface {
	CountReportBuild(report, source string)
}

// Service builds financial statements, caching them when a cache is configured.
type Service struct {
	store   books.Reader
	cache   ReportCache
	metrics ReportRecorder
	logger  *slog.Logger
	now     func() time.Time
	group   singleflight.Group
}

// NewService constructs the statement service. cache may be nil.
func NewService(store books.Reader, cache ReportCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches a build recorder.
func (s *Service) WithMetrics(m ReportRecorder) {
	s.metrics = m
}

// ProfitAndLoss builds the income statement for rng.
func (s *Service) ProfitAndLoss(ctx context.Context, rng shared.DateRange) (ProfitAndLoss, error) {
	if err := rng.Validate(); err != nil {
		return ProfitAndLoss{}, err
	}
	return fetch(ctx, s, ReportProfitAndLoss, func(ctx context.Context) (ProfitAndLoss, error) {
		accounts, err := s.store.ListAccounts(ctx)
		if err != nil {
			return ProfitAndLoss{}, err
		}
		entries, err := s.store.ListLedgerEntries(ctx, books.LedgerFilter{Dimension: books.DimensionAccount, Range: rng})
		if err != nil {
			return ProfitAndLoss{}, err
		}
		purchases, err := s.store.ListVouchers(ctx, books.VoucherFilter{Type: books.VoucherPurchase, Range: rng, HeadersOnly: true})
		if err != nil {
			return ProfitAndLoss{}, err
		}
		return BuildProfitAndLoss(rng, accounts, entries, purchases), nil
	}, rng.From.String(), rng.To.String())
}

// BalanceSheet reports current balances. A zero asOf means today.
func (s *Service) BalanceSheet(ctx context.Context, asOf shared.Date) (BalanceSheet, error) {
	if asOf.IsZero() {
		asOf = shared.DateOf(s.now())
	}
	return fetch(ctx, s, ReportBalanceSheet, func(ctx context.Context) (BalanceSheet, error) {
		accounts, err := s.store.ListAccounts(ctx)
		if err != nil {
			return BalanceSheet{}, err
		}
		return BuildBalanceSheet(asOf, accounts), nil
	}, asOf.String())
}

// GSTReport summarises tax on sales and purchases inside rng.
func (s *Service) GSTReport(ctx context.Context, rng shared.DateRange) (GSTReport, error) {
	if err := rng.Validate(); err != nil {
		return GSTReport{}, err
	}
	return fetch(ctx, s, ReportGST, func(ctx context.Context) (GSTReport, error) {
		vouchers, err := s.store.ListVouchers(ctx, books.VoucherFilter{Range: rng, HeadersOnly: true})
		if err != nil {
			return GSTReport{}, err
		}
		return BuildGSTReport(rng, vouchers), nil
	}, rng.From.String(), rng.To.String())
}

// TrialBalance lists opening, movement and closing per account for rng.
func (s *Service) TrialBalance(ctx context.Context, rng shared.DateRange) (TrialBalance, error) {
	if err := rng.Validate(); err != nil {
		return TrialBalance{}, err
	}
	return fetch(ctx, s, ReportTrialBalance, func(ctx context.Context) (TrialBalance, error) {
		accounts, err := s.store.ListAccounts(ctx)
		if err != nil {
			return TrialBalance{}, err
		}
		entries, err := s.store.ListLedgerEntries(ctx, books.LedgerFilter{
			Dimension: books.DimensionAccount,
			Range:     shared.DateRange{To: rng.To},
		})
		if err != nil {
			return TrialBalance{}, err
		}
		return BuildTrialBalance(rng, accounts, entries), nil
	}, rng.From.String(), rng.To.String())
}

// StockReport values current stock.
func (s *Service) StockReport(ctx context.Context) (StockReport, error) {
	return fetch(ctx, s, ReportStock, func(ctx context.Context) (StockReport, error) {
		items, err := s.store.ListItems(ctx)
		if err != nil {
			return StockReport{}, err
		}
		return BuildStockReport(items), nil
	})
}

// Warm builds the month-to-date P&L, today's balance sheet and the stock report
// so the first reader after a bump hits the cache.
func (s *Service) Warm(ctx context.Context) error {
	today := shared.DateOf(s.now())
	monthStart := shared.NewDate(today.Time().Year(), today.Time().Month(), 1)
	if _, err := s.ProfitAndLoss(ctx, shared.DateRange{From: monthStart, To: today}); err != nil {
		return err
	}
	if _, err := s.BalanceSheet(ctx, today); err != nil {
		return err
	}
	_, err := s.StockReport(ctx)
	return err
}

// fetch collapses concurrent identical builds and serves from the cache when
// it can. Cache failures fall back to a direct build.
func fetch[T any](ctx context.Context, s *Service, report string, build func(context.Context) (T, error), params ...string) (T, error) {
	parts := append([]string{"books", "report", report}, params...)
	ch := s.group.DoChan(strings.Join(parts, "|"), func() (any, error) {
		return load(ctx, s, report, parts, build)
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func load[T any](ctx context.Context, s *Service, report string, parts []string, build func(context.Context) (T, error)) (T, error) {
	if s.cache == nil || !s.cache.Enabled() {
		return buildDirect(ctx, s, report, build)
	}
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.WarnContext(ctx, "build report cache key", slog.String("report", report), slog.Any("error", err))
		return buildDirect(ctx, s, report, build)
	}

	var (
		out      T
		built    T
		ran      bool
		buildErr error
	)
	hit, err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		ran = true
		built, buildErr = build(ctx)
		if buildErr != nil {
			return nil, buildErr
		}
		return built, nil
	})
	switch {
	case err == nil:
		s.count(report, !hit)
		return out, nil
	case ran && buildErr != nil:
		return out, buildErr
	case ran:
		s.logger.WarnContext(ctx, "store report in cache", slog.String("report", report), slog.Any("error", err))
		s.count(report, true)
		return built, nil
	}
	s.logger.WarnContext(ctx, "read report cache", slog.String("report", report), slog.Any("error", err))
	return buildDirect(ctx, s, report, build)
}

func buildDirect[T any](ctx context.Context, s *Service, report string, build func(context.Context) (T, error)) (T, error) {
	v, err := build(ctx)
	if err != nil {
		return v, err
	}
	s.count(report, true)
	return v, nil
}

func (s *Service) count(report string, built bool) {
	if s.metrics == nil {
		return
	}
	source := SourceCache
	if built {
		source = SourceBuild
	}
	s.metrics.CountReportBuild(report, source)
}
