package statements

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/books/memstore"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/vouchers"
	_ "github.com/odyssey-erp/odyssey-books/testing"
)

type recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recorder) CountReportBuild(report, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[report+":"+source]++
}

func (r *recorder) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

type fixture struct {
	store    *memstore.Store
	posting  *vouchers.Service
	customer books.Party
	supplier books.Party
	item     books.Item
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var april = shared.DateRange{From: shared.MustParseDate("2024-04-01"), To: shared.MustParseDate("2024-04-30")}

func seeded(t *testing.T, ctx context.Context) fixture {
	t.Helper()
	store := memstore.New()
	master := masterdata.NewService(store, nil, nil, nil)
	_, err := master.SeedChart(ctx)
	require.NoError(t, err)
	customer, err := master.CreateParty(ctx, masterdata.PartyInput{Type: books.PartyCustomer, Code: "C1", Name: "Asha Traders"})
	require.NoError(t, err)
	supplier, err := master.CreateParty(ctx, masterdata.PartyInput{Type: books.PartySupplier, Code: "S1", Name: "Mehta Wholesale"})
	require.NoError(t, err)
	item, err := master.CreateItem(ctx, masterdata.ItemInput{
		Code: "RICE", Name: "Basmati Rice 5kg", Unit: "Bag",
		PurchaseRate: dec("50"), SaleRate: dec("100"), ReorderLevel: dec("5"),
	})
	require.NoError(t, err)
	return fixture{store: store, posting: vouchers.NewService(store, nil, nil, nil), customer: customer, supplier: supplier, item: item}
}

// postAC records a 1000 + 180 sale and a 500 + 90 purchase of ten units.
func (b fixture) postAC(t *testing.T, ctx context.Context) {
	t.Helper()
	_, err := b.posting.Post(ctx, vouchers.Request{
		Type: books.VoucherPurchase, Number: "P-1", Date: shared.MustParseDate("2024-04-02"),
		PartyID: b.supplier.ID,
		Items:   []vouchers.ItemLine{{ItemID: b.item.ID, Quantity: dec("10"), Rate: dec("50"), TaxRate: dec("18")}},
	})
	require.NoError(t, err)
	_, err = b.posting.Post(ctx, vouchers.Request{
		Type: books.VoucherSales, Number: "S-1", Date: shared.MustParseDate("2024-04-05"),
		PartyID: b.customer.ID,
		Items:   []vouchers.ItemLine{{ItemID: b.item.ID, Quantity: dec("10"), Rate: dec("100"), TaxRate: dec("18")}},
	})
	require.NoError(t, err)
}

func TestProfitAndLossAfterSaleAndPurchase(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	b.postAC(t, ctx)
	svc := NewService(b.store, nil, nil)

	pl, err := svc.ProfitAndLoss(ctx, april)
	require.NoError(t, err)
	require.Equal(t, "1000.00", pl.TotalIncome.StringFixed(2))
	require.Equal(t, "500.00", pl.CostOfGoodsSold.StringFixed(2))
	require.Equal(t, "500.00", pl.GrossProfit.StringFixed(2))
	require.Equal(t, "0.00", pl.TotalExpenses.StringFixed(2))
	require.Equal(t, "500.00", pl.NetProfit.StringFixed(2))
	require.Len(t, pl.IncomeAccounts, 1)
	require.Equal(t, books.CodeSalesRevenue, pl.IncomeAccounts[0].Code)
	require.Empty(t, pl.ExpenseAccounts)

	// Nothing falls in May.
	may, err := svc.ProfitAndLoss(ctx, shared.DateRange{From: shared.MustParseDate("2024-05-01"), To: shared.MustParseDate("2024-05-31")})
	require.NoError(t, err)
	require.True(t, may.TotalIncome.IsZero())
	require.True(t, may.CostOfGoodsSold.IsZero())
}

func TestStatementsOnEmptyBooks(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	svc := NewService(b.store, nil, nil)

	pl, err := svc.ProfitAndLoss(ctx, april)
	require.NoError(t, err)
	require.True(t, pl.NetProfit.IsZero())
	require.NotNil(t, pl.IncomeAccounts)

	bs, err := svc.BalanceSheet(ctx, shared.MustParseDate("2024-04-30"))
	require.NoError(t, err)
	require.Empty(t, bs.Assets)
	require.True(t, bs.TotalAssets.IsZero())

	gst, err := svc.GSTReport(ctx, april)
	require.NoError(t, err)
	require.Zero(t, gst.SalesInvoices)
	require.True(t, gst.NetGSTPayable.IsZero())
}

func TestBalanceSheetReconciles(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	b.postAC(t, ctx)
	svc := NewService(b.store, nil, nil)

	bs, err := svc.BalanceSheet(ctx, shared.MustParseDate("2024-04-30"))
	require.NoError(t, err)
	require.Equal(t, "1270.00", bs.TotalAssets.StringFixed(2))
	require.Equal(t, "770.00", bs.TotalLiabilities.StringFixed(2))
	require.Equal(t, "500.00", bs.CurrentEarnings.StringFixed(2))
	require.True(t, bs.TotalAssets.Equal(bs.TotalLiabilitiesAndCapital))
	require.Equal(t, books.CodeGSTInput, bs.Assets[0].Code)
	require.Equal(t, books.CodeSundryDebtors, bs.Assets[1].Code)
}

func TestBalanceSheetDefaultsToToday(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	svc := NewService(b.store, nil, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) })

	bs, err := svc.BalanceSheet(ctx, shared.Date{})
	require.NoError(t, err)
	require.Equal(t, "2024-06-01", bs.AsOnDate.String())
}

func TestGSTAndTrialBalance(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	b.postAC(t, ctx)
	svc := NewService(b.store, nil, nil)

	gst, err := svc.GSTReport(ctx, april)
	require.NoError(t, err)
	require.Equal(t, "180.00", gst.OutputGST.StringFixed(2))
	require.Equal(t, "90.00", gst.InputGST.StringFixed(2))
	require.Equal(t, "90.00", gst.NetGSTPayable.StringFixed(2))
	require.Equal(t, 1, gst.SalesInvoices)
	require.Equal(t, 1, gst.PurchaseBills)

	tb, err := svc.TrialBalance(ctx, april)
	require.NoError(t, err)
	require.True(t, tb.TotalDebit.Equal(tb.TotalCredit))
	require.Equal(t, "1770.00", tb.TotalDebit.StringFixed(2))
	require.True(t, tb.TotalClosing.IsZero())
}

func TestStockReportFlagsLowStock(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	svc := NewService(b.store, nil, nil)

	report, err := svc.StockReport(ctx)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	require.True(t, report.Items[0].LowStock)
	require.Equal(t, 1, report.LowStockCount)

	b.postAC(t, ctx)
	_, err = b.posting.Post(ctx, vouchers.Request{
		Type: books.VoucherPurchase, Number: "P-2", Date: shared.MustParseDate("2024-04-06"),
		PartyID: b.supplier.ID,
		Items:   []vouchers.ItemLine{{ItemID: b.item.ID, Quantity: dec("8"), Rate: dec("50")}},
	})
	require.NoError(t, err)

	report, err = svc.StockReport(ctx)
	require.NoError(t, err)
	require.False(t, report.Items[0].LowStock)
	require.Equal(t, "400.00", report.TotalStockValue.StringFixed(2))
}

func TestRangeValidation(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	svc := NewService(b.store, nil, nil)

	_, err := svc.ProfitAndLoss(ctx, shared.DateRange{From: shared.MustParseDate("2024-05-01"), To: shared.MustParseDate("2024-04-01")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCachedReportsUntilBump(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	versioned := cache.NewVersioned(client, time.Minute)

	rec := &recorder{}
	svc := NewService(b.store, versioned, nil)
	svc.WithMetrics(rec)

	first, err := svc.ProfitAndLoss(ctx, april)
	require.NoError(t, err)
	require.True(t, first.TotalIncome.IsZero())

	second, err := svc.ProfitAndLoss(ctx, april)
	require.NoError(t, err)
	require.Equal(t, first.PeriodFrom.String(), second.PeriodFrom.String())
	require.Equal(t, 1, rec.get("profit_loss:build"))
	require.Equal(t, 1, rec.get("profit_loss:cache"))

	// Posting without a bump still serves the cached statement.
	b.postAC(t, ctx)
	stale, err := svc.ProfitAndLoss(ctx, april)
	require.NoError(t, err)
	require.True(t, stale.TotalIncome.IsZero())

	require.NoError(t, versioned.Bump(ctx))
	fresh, err := svc.ProfitAndLoss(ctx, april)
	require.NoError(t, err)
	require.Equal(t, "1000.00", fresh.TotalIncome.StringFixed(2))
	require.Equal(t, 2, rec.get("profit_loss:build"))
}

func TestCacheOutageFallsBackToBuild(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	b.postAC(t, ctx)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	rec := &recorder{}
	svc := NewService(b.store, cache.NewVersioned(client, time.Minute), nil)
	svc.WithMetrics(rec)

	pl, err := svc.ProfitAndLoss(ctx, april)
	require.NoError(t, err)
	require.Equal(t, "500.00", pl.NetProfit.StringFixed(2))
	require.Equal(t, 1, rec.get("profit_loss:build"))
}

type failingReader struct {
	books.Reader
}

func (failingReader) ListAccounts(context.Context) ([]books.Account, error) {
	return nil, errors.New("connection reset")
}

func TestBuildErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	svc := NewService(failingReader{Reader: b.store}, nil, nil)
	_, err := svc.BalanceSheet(ctx, shared.MustParseDate("2024-04-30"))
	require.EqualError(t, err, "connection reset")
}

func TestReportEndpoints(t *testing.T) {
	ctx := context.Background()
	b := seeded(t, ctx)
	b.postAC(t, ctx)
	r := chi.NewRouter()
	NewHandler(nil, NewService(b.store, nil, nil), "Asha Stores").MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/profit-loss?from_date=2024-04-01&to_date=2024-04-30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"net_profit":"500"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/profit-loss.pdf?from_date=2024-04-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/balance-sheet.pdf?as_on_date=2024-04-30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/balance-sheet?as_on_date=30-04-2024", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"as_on_date"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/gst?from_date=2024-05-01&to_date=2024-04-01", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"from_date"`)

	for _, path := range []string{"/reports/trial-balance", "/reports/stock"} {
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
