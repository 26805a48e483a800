package masterdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/books/memstore"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	_ "github.com/odyssey-erp/odyssey-books/testing"
)

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type countingCache struct {
	bumps int
}

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

func newTestService(t *testing.T) (*Service, *recordingAudit, *countingCache) {
	t.Helper()
	audit := &recordingAudit{}
	cache := &countingCache{}
	svc := NewService(memstore.New(), audit, cache, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC) })
	return svc, audit, cache
}

func TestCreateAccountStartsAtOpeningBalance(t *testing.T) {
	svc, audit, cache := newTestService(t)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{Subject: "owner@shop"})

	acc, err := svc.CreateAccount(ctx, AccountInput{
		Code:           " 1101 ",
		Name:           "Petty Cash",
		Type:           books.AccountAsset,
		OpeningBalance: decimal.RequireFromString("250.005"),
	})
	require.NoError(t, err)
	require.Equal(t, "1101", acc.Code)
	require.Equal(t, "250.01", acc.OpeningBalance.StringFixed(2))
	require.True(t, acc.CurrentBalance.Equal(acc.OpeningBalance))

	got, err := svc.AccountByCode(ctx, "1101")
	require.NoError(t, err)
	require.Equal(t, acc.ID, got.ID)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "owner@shop", audit.logs[0].Actor)
	require.Equal(t, "account.create", audit.logs[0].Action)
	require.Equal(t, 1, cache.bumps)
}

func TestCreateAccountRejectsDuplicateCode(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, AccountInput{Code: "9001", Name: "Suspense", Type: books.AccountAsset})
	require.NoError(t, err)
	_, err = svc.CreateAccount(ctx, AccountInput{Code: "9001", Name: "Other", Type: books.AccountExpense})
	require.ErrorIs(t, err, books.ErrDuplicateCode)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	cases := []struct {
		in    AccountInput
		field string
	}{
		{AccountInput{Name: "x", Type: books.AccountAsset}, "code"},
		{AccountInput{Code: "1", Type: books.AccountAsset}, "name"},
		{AccountInput{Code: "1", Name: "x", Type: "equity"}, "account_type"},
		{AccountInput{Code: "1", Name: "x", Type: books.AccountAsset, OpeningBalance: decimal.NewFromInt(-1)}, "opening_balance"},
	}
	for _, tc := range cases {
		_, err := svc.CreateAccount(context.Background(), tc.in)
		var vErr *shared.ValidationError
		require.True(t, errors.As(err, &vErr), "expected validation error for %s", tc.field)
		require.Equal(t, tc.field, vErr.Field)
	}
}

func TestPartyCodesAreScopedByType(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	customer, err := svc.CreateParty(ctx, PartyInput{Type: books.PartyCustomer, Code: "P001", Name: "Asha Traders"})
	require.NoError(t, err)
	require.Equal(t, books.BalanceDebit, customer.BalanceType)

	supplier, err := svc.CreateParty(ctx, PartyInput{Type: books.PartySupplier, Code: "P001", Name: "Metro Wholesale"})
	require.NoError(t, err)
	require.Equal(t, books.BalanceCredit, supplier.BalanceType)

	_, err = svc.CreateParty(ctx, PartyInput{Type: books.PartyCustomer, Code: "p001", Name: "Dup"})
	require.ErrorIs(t, err, books.ErrDuplicateCode)

	got, err := svc.PartyByCode(ctx, books.PartySupplier, "P001")
	require.NoError(t, err)
	require.Equal(t, supplier.ID, got.ID)

	customers, err := svc.ListParties(ctx, books.PartyCustomer)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	all, err := svc.ListParties(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestCreateItemStartsAtOpeningStock(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, ItemInput{
		Code:         "RICE-25",
		Name:         "Basmati Rice 25kg",
		Unit:         "Bag",
		PurchaseRate: decimal.NewFromInt(1500),
		SaleRate:     decimal.NewFromInt(1750),
		GSTRate:      decimal.NewFromInt(5),
		OpeningStock: decimal.NewFromInt(12),
		ReorderLevel: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.True(t, item.CurrentStock.Equal(decimal.NewFromInt(12)))

	_, err = svc.CreateItem(ctx, ItemInput{Code: "RICE-25", Name: "Again"})
	require.ErrorIs(t, err, books.ErrDuplicateCode)

	_, err = svc.CreateItem(ctx, ItemInput{Code: "X", Name: "Bad", SaleRate: decimal.NewFromInt(-1)})
	var vErr *shared.ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "sale_rate", vErr.Field)

	_, err = svc.GetItem(ctx, uuid.New())
	require.ErrorIs(t, err, books.ErrItemNotFound)
	require.True(t, books.IsNotFound(err))
}

func TestSeedChartIsIdempotent(t *testing.T) {
	svc, _, cache := newTestService(t)
	ctx := context.Background()

	created, err := svc.SeedChart(ctx)
	require.NoError(t, err)
	chart, err := DefaultChart()
	require.NoError(t, err)
	require.Len(t, created, len(chart))
	require.Equal(t, 1, cache.bumps)

	again, err := svc.SeedChart(ctx)
	require.NoError(t, err)
	require.Empty(t, again)
	require.Equal(t, 1, cache.bumps)

	for _, code := range []string{
		books.CodeCash, books.CodeBank, books.CodeSundryDebtors, books.CodeSundryCreditors,
		books.CodeGSTInput, books.CodeGSTOutput, books.CodeSalesRevenue, books.CodePurchase,
		books.CodeDiscountAllowed, books.CodeDiscountReceived,
	} {
		acc, err := svc.AccountByCode(ctx, code)
		require.NoError(t, err, code)
		require.True(t, acc.IsSystem, code)
	}

	expenses, err := svc.ListAccounts(ctx, books.AccountExpense)
	require.NoError(t, err)
	for _, acc := range expenses {
		require.Equal(t, books.AccountExpense, acc.Type)
	}
}

func TestDeleteAccountGuards(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.SeedChart(ctx)
	require.NoError(t, err)

	cash, err := svc.AccountByCode(ctx, books.CodeCash)
	require.NoError(t, err)
	require.ErrorIs(t, svc.DeleteAccount(ctx, cash.ID), ErrSystemAccount)

	furniture, err := svc.AccountByCode(ctx, "1004")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAccount(ctx, furniture.ID))
	_, err = svc.GetAccount(ctx, furniture.ID)
	require.ErrorIs(t, err, books.ErrAccountNotFound)

	require.ErrorIs(t, svc.DeleteAccount(ctx, uuid.New()), books.ErrAccountNotFound)
}

func TestParseChartRejectsDuplicates(t *testing.T) {
	_, err := parseChart([]byte(`accounts:
  - {code: "1", name: A, type: asset}
  - {code: "1", name: B, type: asset}
`))
	require.Error(t, err)

	_, err = parseChart([]byte(`accounts:
  - {code: "1", name: A, type: equity}
`))
	require.ErrorIs(t, err, shared.ErrValidation)
}
