package vouchers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/books/memstore"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	_ "github.com/odyssey-erp/odyssey-books/testing"
)

type stubRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *stubRecorder) ObservePosting(voucherType, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, voucherType+":"+outcome)
}

func (r *stubRecorder) Outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

type countingCache struct{ bumps atomic.Int64 }

func (c *countingCache) Bump(context.Context) error {
	c.bumps.Add(1)
	return nil
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memstore.Store
	master   *masterdata.Service
	svc      *Service
	cache    *countingCache
	recorder *stubRecorder
	customer books.Party
	supplier books.Party
	item     books.Item
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{Subject: "admin@shop"})
	store := memstore.New()
	master := masterdata.NewService(store, nil, nil, nil)
	_, err := master.SeedChart(ctx)
	require.NoError(t, err)

	customer, err := master.CreateParty(ctx, masterdata.PartyInput{Type: books.PartyCustomer, Code: "C1", Name: "Asha Traders"})
	require.NoError(t, err)
	supplier, err := master.CreateParty(ctx, masterdata.PartyInput{Type: books.PartySupplier, Code: "S1", Name: "Metro Wholesale"})
	require.NoError(t, err)
	item, err := master.CreateItem(ctx, masterdata.ItemInput{Code: "RICE", Name: "Rice 25kg", PurchaseRate: dec("50"), SaleRate: dec("65")})
	require.NoError(t, err)

	cache := &countingCache{}
	recorder := &stubRecorder{}
	svc := NewService(store, nil, cache, nil)
	svc.WithMetrics(recorder)
	svc.WithNow(func() time.Time { return time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC) })
	return &fixture{t: t, ctx: ctx, store: store, master: master, svc: svc, cache: cache, recorder: recorder,
		customer: customer, supplier: supplier, item: item}
}

func (f *fixture) account(code string) books.Account {
	f.t.Helper()
	acc, err := f.store.AccountByCode(f.ctx, code)
	require.NoError(f.t, err)
	return acc
}

func (f *fixture) balance(code string) string {
	return f.account(code).CurrentBalance.StringFixed(2)
}

func (f *fixture) stock() string {
	f.t.Helper()
	item, err := f.store.GetItem(f.ctx, f.item.ID)
	require.NoError(f.t, err)
	return item.CurrentStock.StringFixed(3)
}

func (f *fixture) sale(number string, subtotal, tax string) PostedVoucher {
	f.t.Helper()
	posted, err := f.svc.Post(f.ctx, Request{
		Type:      books.VoucherSales,
		Number:    number,
		Date:      shared.MustParseDate("2024-04-05"),
		PartyID:   f.customer.ID,
		Subtotal:  decimal.NewNullDecimal(dec(subtotal)),
		TaxAmount: decimal.NewNullDecimal(dec(tax)),
	})
	require.NoError(f.t, err)
	return posted
}

func (f *fixture) ledgerCount() int {
	f.t.Helper()
	entries, err := f.store.ListLedgerEntries(f.ctx, books.LedgerFilter{})
	require.NoError(f.t, err)
	return len(entries)
}

func TestSalesVoucherPostsRevenueAndTax(t *testing.T) {
	f := newFixture(t)
	posted := f.sale("S-001", "1000", "180")

	require.Equal(t, "1180.00", posted.Voucher.Total.StringFixed(2))
	require.Equal(t, books.PaymentUnpaid, posted.Voucher.PaymentStatus)
	require.Equal(t, books.PartyCustomer, posted.Voucher.PartyType)
	require.Equal(t, "admin@shop", posted.Voucher.CreatedBy)
	require.True(t, posted.JournalEntry.Balanced())
	require.Len(t, posted.JournalEntry.Lines, 3)

	require.Equal(t, "1000.00", f.balance(books.CodeSalesRevenue))
	require.Equal(t, "180.00", f.balance(books.CodeGSTOutput))
	require.Equal(t, "1180.00", f.balance(books.CodeSundryDebtors))

	var party []books.LedgerEntry
	for _, e := range posted.LedgerEntries {
		if e.Dimension == books.DimensionParty {
			party = append(party, e)
		}
	}
	require.Len(t, party, 1)
	require.Equal(t, f.customer.ID, party[0].DimensionID)
	require.Equal(t, "1180.00", party[0].Debit.StringFixed(2))
	require.True(t, party[0].Credit.IsZero())

	require.Equal(t, int64(1), f.cache.bumps.Load())
	require.Equal(t, []string{"sales:posted"}, f.recorder.Outcomes())
}

func TestReceiptSettlesCustomer(t *testing.T) {
	f := newFixture(t)
	f.sale("S-001", "1000", "180")
	cash := f.account(books.CodeCash)

	posted, err := f.svc.Post(f.ctx, Request{
		Type:      books.VoucherReceipt,
		Number:    "R-001",
		Date:      shared.MustParseDate("2024-04-06"),
		PartyID:   f.customer.ID,
		AccountID: cash.ID,
		Amount:    dec("1180"),
	})
	require.NoError(t, err)
	require.Empty(t, posted.Voucher.PaymentStatus)

	require.Equal(t, "1180.00", f.balance(books.CodeCash))
	require.Equal(t, "0.00", f.balance(books.CodeSundryDebtors))
	partyEntries, err := f.store.ListLedgerEntries(f.ctx, books.LedgerFilter{Dimension: books.DimensionParty, ID: f.customer.ID})
	require.NoError(t, err)
	require.Len(t, partyEntries, 2)
	require.Equal(t, "1180.00", partyEntries[1].Credit.StringFixed(2))
}

func TestPurchaseVoucherReceivesStock(t *testing.T) {
	f := newFixture(t)
	posted, err := f.svc.Post(f.ctx, Request{
		Type:    books.VoucherPurchase,
		Number:  "P-001",
		Date:    shared.MustParseDate("2024-04-02"),
		PartyID: f.supplier.ID,
		Items:   []ItemLine{{ItemID: f.item.ID, Quantity: dec("10"), Rate: dec("50"), TaxRate: dec("18")}},
		Total:   decimal.NewNullDecimal(dec("590")),
	})
	require.NoError(t, err)

	v := posted.Voucher
	require.Equal(t, "500.00", v.Subtotal.StringFixed(2))
	require.Equal(t, "90.00", v.TaxAmount.StringFixed(2))
	require.Equal(t, "Rice 25kg", v.Items[0].ItemName)

	require.Equal(t, "10.000", f.stock())
	require.Equal(t, "500.00", f.balance(books.CodePurchase))
	require.Equal(t, "90.00", f.balance(books.CodeGSTInput))
	require.Equal(t, "590.00", f.balance(books.CodeSundryCreditors))

	items, err := f.store.ListLedgerEntries(f.ctx, books.LedgerFilter{Dimension: books.DimensionItem, ID: f.item.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "10.000", items[0].QuantityIn.StringFixed(3))
	require.True(t, items[0].QuantityOut.IsZero())

	parties, err := f.store.ListLedgerEntries(f.ctx, books.LedgerFilter{Dimension: books.DimensionParty, ID: f.supplier.ID})
	require.NoError(t, err)
	require.Len(t, parties, 1)
	require.Equal(t, "590.00", parties[0].Credit.StringFixed(2))
}

func TestContraMovesBetweenAccounts(t *testing.T) {
	f := newFixture(t)
	cash, bank := f.account(books.CodeCash), f.account(books.CodeBank)
	before := f.ledgerCount()

	posted, err := f.svc.Post(f.ctx, Request{
		Type:             books.VoucherContra,
		Number:           "C-001",
		Date:             shared.MustParseDate("2024-04-03"),
		AccountID:        bank.ID,
		CounterAccountID: cash.ID,
		Amount:           dec("300"),
	})
	require.NoError(t, err)
	require.Equal(t, "-300.00", f.balance(books.CodeCash))
	require.Equal(t, "300.00", f.balance(books.CodeBank))
	for _, e := range posted.LedgerEntries {
		require.NotEqual(t, books.DimensionParty, e.Dimension)
	}
	require.Equal(t, before+2, f.ledgerCount())

	_, err = f.svc.Post(f.ctx, Request{
		Type:             books.VoucherContra,
		Number:           "C-002",
		Date:             shared.MustParseDate("2024-04-03"),
		AccountID:        cash.ID,
		CounterAccountID: cash.ID,
		Amount:           dec("1"),
	})
	var vErr *shared.ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "to_account_id", vErr.Field)
}

func TestUnbalancedJournalChangesNothing(t *testing.T) {
	f := newFixture(t)
	cash, capital := f.account(books.CodeCash), f.account(books.CodeOwnersCapital)

	_, err := f.svc.Post(f.ctx, Request{
		Type:   books.VoucherJournal,
		Number: "J-001",
		Date:   shared.MustParseDate("2024-04-01"),
		Lines: []LineInput{
			{AccountID: cash.ID, Debit: dec("100")},
			{AccountID: capital.ID, Credit: dec("99.98")},
		},
	})
	require.ErrorIs(t, err, ErrUnbalancedJournal)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, "0.00", f.balance(books.CodeCash))
	require.Zero(t, f.ledgerCount())
	require.Equal(t, []string{"journal:rejected"}, f.recorder.Outcomes())

	posted, err := f.svc.Post(f.ctx, Request{
		Type:   books.VoucherJournal,
		Number: "J-001",
		Date:   shared.MustParseDate("2024-04-01"),
		Lines: []LineInput{
			{AccountID: cash.ID, Debit: dec("5000"), Narration: "Capital introduced"},
			{AccountID: capital.ID, Credit: dec("5000")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "5000.00", posted.Voucher.Total.StringFixed(2))
	require.Equal(t, "5000.00", f.balance(books.CodeCash))
	require.Equal(t, "5000.00", f.balance(books.CodeOwnersCapital))
	require.Equal(t, "Capital introduced", posted.LedgerEntries[0].Particulars)
}

func TestJournalToleranceBoundary(t *testing.T) {
	f := newFixture(t)
	cash, capital := f.account(books.CodeCash), f.account(books.CodeOwnersCapital)

	_, err := f.svc.Post(f.ctx, Request{
		Type:   books.VoucherJournal,
		Number: "J-010",
		Date:   shared.MustParseDate("2024-04-01"),
		Lines: []LineInput{
			{AccountID: cash.ID, Debit: dec("100.00")},
			{AccountID: capital.ID, Credit: dec("99.99")},
		},
	})
	require.ErrorIs(t, err, ErrUnbalancedJournal)
	require.Zero(t, f.ledgerCount())

	posted, err := f.svc.Post(f.ctx, Request{
		Type:   books.VoucherJournal,
		Number: "J-010",
		Date:   shared.MustParseDate("2024-04-01"),
		Lines: []LineInput{
			{AccountID: cash.ID, Debit: dec("100.004")},
			{AccountID: capital.ID, Credit: dec("100")},
		},
	})
	require.NoError(t, err)
	require.True(t, posted.JournalEntry.Balanced())
	require.Equal(t, "100.00", posted.JournalEntry.Lines[0].Debit.StringFixed(2))
	require.Equal(t, "100.00", f.balance(books.CodeCash))
}

func TestJournalLineNeedsExactlyOneSide(t *testing.T) {
	f := newFixture(t)
	cash := f.account(books.CodeCash)
	_, err := f.svc.Post(f.ctx, Request{
		Type:   books.VoucherJournal,
		Number: "J-002",
		Date:   shared.MustParseDate("2024-04-01"),
		Lines: []LineInput{
			{AccountID: cash.ID, Debit: dec("10"), Credit: dec("10")},
			{AccountID: cash.ID, Credit: dec("10")},
		},
	})
	var vErr *shared.ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "lines[0].debit", vErr.Field)

	_, err = f.svc.Post(f.ctx, Request{
		Type:   books.VoucherJournal,
		Number: "J-003",
		Date:   shared.MustParseDate("2024-04-01"),
		Lines:  []LineInput{{AccountID: cash.ID, Debit: dec("10")}},
	})
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "lines", vErr.Field)
}

func TestDuplicateNumberIsScopedByType(t *testing.T) {
	f := newFixture(t)
	f.sale("001", "100", "0")

	_, err := f.svc.Post(f.ctx, Request{
		Type:      books.VoucherSales,
		Number:    "001",
		Date:      shared.MustParseDate("2024-04-05"),
		PartyID:   f.customer.ID,
		Subtotal:  decimal.NewNullDecimal(dec("50")),
		TaxAmount: decimal.NullDecimal{},
	})
	require.ErrorIs(t, err, books.ErrDuplicateVoucherNumber)
	require.Equal(t, "100.00", f.balance(books.CodeSalesRevenue))

	_, err = f.svc.Post(f.ctx, Request{
		Type:      books.VoucherReceipt,
		Number:    "001",
		Date:      shared.MustParseDate("2024-04-05"),
		PartyID:   f.customer.ID,
		AccountID: f.account(books.CodeBank).ID,
		Amount:    dec("100"),
	})
	require.NoError(t, err)
}

func TestUnresolvedReferenceChangesNothing(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()

	_, err := f.svc.Post(f.ctx, Request{
		Type:    books.VoucherSales,
		Number:  "S-404",
		Date:    shared.MustParseDate("2024-04-05"),
		PartyID: f.customer.ID,
		Items: []ItemLine{
			{ItemID: f.item.ID, Quantity: dec("1"), Rate: dec("65")},
			{ItemID: missing, Quantity: dec("1"), Rate: dec("10")},
		},
	})
	require.ErrorIs(t, err, books.ErrUnresolvedReference)
	require.ErrorIs(t, err, shared.ErrUnprocessable)
	var refErr *books.ReferenceError
	require.True(t, errors.As(err, &refErr))
	require.Equal(t, "items[1].item_id", refErr.Field)

	require.Equal(t, "0.000", f.stock())
	require.Equal(t, "0.00", f.balance(books.CodeSalesRevenue))
	require.Zero(t, f.ledgerCount())
	vouchers, err := f.svc.List(f.ctx, books.VoucherSales, shared.DateRange{})
	require.NoError(t, err)
	require.Empty(t, vouchers)

	_, err = f.svc.Post(f.ctx, Request{
		Type:     books.VoucherSales,
		Number:   "S-405",
		Date:     shared.MustParseDate("2024-04-05"),
		PartyID:  f.supplier.ID,
		Subtotal: decimal.NewNullDecimal(dec("10")),
	})
	require.True(t, errors.As(err, &refErr))
	require.Equal(t, "customer_id", refErr.Field)
}

func TestMissingSystemAccountIsUnresolved(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	master := masterdata.NewService(store, nil, nil, nil)
	customer, err := master.CreateParty(ctx, masterdata.PartyInput{Type: books.PartyCustomer, Code: "C1", Name: "Walk-in"})
	require.NoError(t, err)

	svc := NewService(store, nil, nil, nil)
	_, err = svc.Post(ctx, Request{
		Type:     books.VoucherSales,
		Number:   "S-1",
		Date:     shared.MustParseDate("2024-04-05"),
		PartyID:  customer.ID,
		Subtotal: decimal.NewNullDecimal(dec("10")),
	})
	require.ErrorIs(t, err, books.ErrUnresolvedReference)
}

func TestAccountTypeRules(t *testing.T) {
	f := newFixture(t)
	var vErr *shared.ValidationError

	_, err := f.svc.Post(f.ctx, Request{
		Type:      books.VoucherPayment,
		Number:    "PY-1",
		Date:      shared.MustParseDate("2024-04-05"),
		PartyID:   f.supplier.ID,
		AccountID: f.account(books.CodeSalesRevenue).ID,
		Amount:    dec("10"),
	})
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "account_id", vErr.Field)

	_, err = f.svc.Post(f.ctx, Request{
		Type:             books.VoucherExpense,
		Number:           "E-1",
		Date:             shared.MustParseDate("2024-04-05"),
		AccountID:        f.account(books.CodeBank).ID,
		CounterAccountID: f.account(books.CodeCash).ID,
		Amount:           dec("10"),
	})
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "expense_account_id", vErr.Field)

	rent := f.account("5002")
	posted, err := f.svc.Post(f.ctx, Request{
		Type:             books.VoucherExpense,
		Number:           "E-1",
		Date:             shared.MustParseDate("2024-04-05"),
		AccountID:        rent.ID,
		CounterAccountID: f.account(books.CodeBank).ID,
		Amount:           dec("12000"),
		PaymentMode:      books.PaymentBank,
	})
	require.NoError(t, err)
	require.Len(t, posted.LedgerEntries, 2)
	require.Equal(t, "12000.00", f.balance("5002"))
	require.Equal(t, "-12000.00", f.balance(books.CodeBank))
}

func TestSalesValidation(t *testing.T) {
	f := newFixture(t)
	base := Request{Type: books.VoucherSales, Number: "S-9", Date: shared.MustParseDate("2024-04-05"), PartyID: f.customer.ID}
	cases := []struct {
		mutate func(*Request)
		field  string
	}{
		{func(r *Request) { r.Number = " " }, "voucher_number"},
		{func(r *Request) { r.Date = shared.Date{} }, "voucher_date"},
		{func(r *Request) { r.PartyID = uuid.Nil }, "customer_id"},
		{func(r *Request) {}, "items"},
		{func(r *Request) {
			r.Items = []ItemLine{{ItemID: f.item.ID, Quantity: dec("0"), Rate: dec("1")}}
		}, "items[0].quantity"},
		{func(r *Request) {
			r.Items = []ItemLine{{ItemID: f.item.ID, Quantity: dec("1"), Rate: dec("-1")}}
		}, "items[0].rate"},
		{func(r *Request) {
			r.Items = []ItemLine{{ItemID: f.item.ID, Quantity: dec("2"), Rate: dec("10")}}
			r.Subtotal = decimal.NewNullDecimal(dec("25"))
		}, "subtotal"},
		{func(r *Request) {
			r.Subtotal = decimal.NewNullDecimal(dec("100"))
			r.TaxAmount = decimal.NewNullDecimal(dec("18"))
			r.Total = decimal.NewNullDecimal(dec("117"))
		}, "total_amount"},
		{func(r *Request) {
			r.Subtotal = decimal.NewNullDecimal(dec("100"))
			r.Discount = dec("100")
		}, "discount"},
		{func(r *Request) {
			r.Subtotal = decimal.NewNullDecimal(dec("100"))
			r.PaymentMode = "barter"
		}, "payment_mode"},
		{func(r *Request) {
			r.Subtotal = decimal.NewNullDecimal(dec("100"))
			r.Lines = []LineInput{{AccountID: uuid.New(), Debit: dec("1")}}
		}, "lines"},
	}
	for _, tc := range cases {
		req := base
		tc.mutate(&req)
		_, err := f.svc.Post(f.ctx, req)
		var vErr *shared.ValidationError
		require.True(t, errors.As(err, &vErr), "expected validation error on %s, got %v", tc.field, err)
		require.Equal(t, tc.field, vErr.Field)
	}
	require.Zero(t, f.ledgerCount())
}

func TestTotalToleratesSubCentDifference(t *testing.T) {
	f := newFixture(t)
	posted, err := f.svc.Post(f.ctx, Request{
		Type:      books.VoucherSales,
		Number:    "S-10",
		Date:      shared.MustParseDate("2024-04-05"),
		PartyID:   f.customer.ID,
		Subtotal:  decimal.NewNullDecimal(dec("99.999")),
		TaxAmount: decimal.NewNullDecimal(dec("18")),
		Total:     decimal.NewNullDecimal(dec("118.004")),
	})
	require.NoError(t, err)
	require.Equal(t, "118.00", posted.Voucher.Total.StringFixed(2))
	require.True(t, posted.JournalEntry.Balanced())
}

func TestDiscountLegsKeepEntriesBalanced(t *testing.T) {
	f := newFixture(t)
	sale, err := f.svc.Post(f.ctx, Request{
		Type:      books.VoucherSales,
		Number:    "S-D1",
		Date:      shared.MustParseDate("2024-04-05"),
		PartyID:   f.customer.ID,
		Subtotal:  decimal.NewNullDecimal(dec("1000")),
		TaxAmount: decimal.NewNullDecimal(dec("180")),
		Discount:  dec("80"),
	})
	require.NoError(t, err)
	require.Equal(t, "1100.00", sale.Voucher.Total.StringFixed(2))
	require.True(t, sale.JournalEntry.Balanced())
	require.Len(t, sale.JournalEntry.Lines, 4)
	require.Equal(t, "80.00", f.balance(books.CodeDiscountAllowed))
	require.Equal(t, "1100.00", f.balance(books.CodeSundryDebtors))
	require.Equal(t, "1000.00", f.balance(books.CodeSalesRevenue))

	purchase, err := f.svc.Post(f.ctx, Request{
		Type:     books.VoucherPurchase,
		Number:   "P-D1",
		Date:     shared.MustParseDate("2024-04-05"),
		PartyID:  f.supplier.ID,
		Subtotal: decimal.NewNullDecimal(dec("400")),
		Discount: dec("25"),
	})
	require.NoError(t, err)
	require.Len(t, purchase.JournalEntry.Lines, 3)
	require.True(t, purchase.JournalEntry.Balanced())
	require.Equal(t, "25.00", f.balance(books.CodeDiscountReceived))
	require.Equal(t, "375.00", f.balance(books.CodeSundryCreditors))
}

func TestSalesStockAndNegativeFloor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Post(f.ctx, Request{
		Type:    books.VoucherPurchase,
		Number:  "P-1",
		Date:    shared.MustParseDate("2024-04-01"),
		PartyID: f.supplier.ID,
		Items:   []ItemLine{{ItemID: f.item.ID, Quantity: dec("5"), Rate: dec("50")}},
	})
	require.NoError(t, err)

	sell := func(number, qty string) error {
		_, err := f.svc.Post(f.ctx, Request{
			Type:    books.VoucherSales,
			Number:  number,
			Date:    shared.MustParseDate("2024-04-02"),
			PartyID: f.customer.ID,
			Items:   []ItemLine{{ItemID: f.item.ID, Quantity: dec(qty), Rate: dec("65")}},
		})
		return err
	}
	require.NoError(t, sell("S-1", "3"))
	require.Equal(t, "2.000", f.stock())

	f.svc.AllowNegativeStock(false)
	err = sell("S-2", "2.5")
	require.ErrorIs(t, err, books.ErrInsufficientStock)
	require.Equal(t, "2.000", f.stock())
	require.Equal(t, "195.00", f.balance(books.CodeSalesRevenue))

	f.svc.AllowNegativeStock(true)
	require.NoError(t, sell("S-2", "2.5"))
	require.Equal(t, "-0.500", f.stock())
}

func TestRecordPaymentMovesStatusForward(t *testing.T) {
	f := newFixture(t)
	sale := f.sale("S-1", "1000", "0")
	id := sale.Voucher.ID

	v, err := f.svc.RecordPayment(f.ctx, books.VoucherSales, id, dec("400"))
	require.NoError(t, err)
	require.Equal(t, books.PaymentPartial, v.PaymentStatus)

	v, err = f.svc.RecordPayment(f.ctx, books.VoucherSales, id, dec("600"))
	require.NoError(t, err)
	require.Equal(t, books.PaymentPaid, v.PaymentStatus)

	v, err = f.svc.RecordPayment(f.ctx, books.VoucherSales, id, dec("50"))
	require.NoError(t, err)
	require.Equal(t, books.PaymentPaid, v.PaymentStatus)
	require.Equal(t, "1050.00", v.PaidAmount.StringFixed(2))

	detail, err := f.svc.Get(f.ctx, books.VoucherSales, id)
	require.NoError(t, err)
	require.Equal(t, "1050.00", detail.Voucher.PaidAmount.StringFixed(2))
	require.Equal(t, id, detail.JournalEntry.VoucherID)

	_, err = f.svc.RecordPayment(f.ctx, books.VoucherSales, id, dec("0"))
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.RecordPayment(f.ctx, books.VoucherContra, id, dec("1"))
	require.ErrorIs(t, err, ErrNotInvoiced)
	_, err = f.svc.RecordPayment(f.ctx, books.VoucherPurchase, id, dec("1"))
	require.ErrorIs(t, err, books.ErrVoucherNotFound)
}

func TestConcurrentPostingsCompose(t *testing.T) {
	f := newFixture(t)
	bank := f.account(books.CodeBank)
	const n = 25

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, err := f.svc.Post(f.ctx, Request{
				Type:      books.VoucherReceipt,
				Number:    fmt.Sprintf("R-%03d", i),
				Date:      shared.MustParseDate("2024-04-07"),
				PartyID:   f.customer.ID,
				AccountID: bank.ID,
				Amount:    dec("10.10"),
			})
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int64(n), f.cache.bumps.Load())
	require.Len(t, f.recorder.Outcomes(), n)
	require.Equal(t, "252.50", f.balance(books.CodeBank))
	require.Equal(t, "-252.50", f.balance(books.CodeSundryDebtors))

	entries, err := f.store.ListLedgerEntries(f.ctx, books.LedgerFilter{Dimension: books.DimensionParty, ID: f.customer.ID})
	require.NoError(t, err)
	require.Len(t, entries, n)
}

func TestBalancesMatchJournalHistory(t *testing.T) {
	f := newFixture(t)
	f.sale("S-1", "1000", "180")
	_, err := f.svc.Post(f.ctx, Request{
		Type:      books.VoucherReceipt,
		Number:    "R-1",
		Date:      shared.MustParseDate("2024-04-06"),
		PartyID:   f.customer.ID,
		AccountID: f.account(books.CodeCash).ID,
		Amount:    dec("500"),
	})
	require.NoError(t, err)
	_, err = f.svc.Post(f.ctx, Request{
		Type:             books.VoucherContra,
		Number:           "C-1",
		Date:             shared.MustParseDate("2024-04-06"),
		AccountID:        f.account(books.CodeBank).ID,
		CounterAccountID: f.account(books.CodeCash).ID,
		Amount:           dec("200"),
	})
	require.NoError(t, err)

	accounts, err := f.store.ListAccounts(f.ctx)
	require.NoError(t, err)
	entries, err := f.store.ListJournalEntries(f.ctx)
	require.NoError(t, err)
	for _, acc := range accounts {
		expected := acc.OpeningBalance
		for _, entry := range entries {
			require.True(t, entry.Balanced())
			for _, line := range entry.Lines {
				if line.AccountID == acc.ID {
					expected = expected.Add(acc.Type.Delta(line.Debit, line.Credit))
				}
			}
		}
		require.True(t, expected.Equal(acc.CurrentBalance), "account %s: expected %s got %s", acc.Code, expected, acc.CurrentBalance)
	}
}

func TestReferencedAccountCannotBeDeleted(t *testing.T) {
	f := newFixture(t)
	stationery := f.account("5008")
	_, err := f.svc.Post(f.ctx, Request{
		Type:             books.VoucherExpense,
		Number:           "E-1",
		Date:             shared.MustParseDate("2024-04-05"),
		AccountID:        stationery.ID,
		CounterAccountID: f.account(books.CodeCash).ID,
		Amount:           dec("75"),
	})
	require.NoError(t, err)
	require.ErrorIs(t, f.master.DeleteAccount(f.ctx, stationery.ID), masterdata.ErrAccountInUse)
}
