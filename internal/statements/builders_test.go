package statements

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

func acct(code, name string, t books.AccountType, opening, current string) books.Account {
	return books.Account{
		ID:             uuid.New(),
		Code:           code,
		Name:           name,
		Type:           t,
		OpeningBalance: dec(opening),
		CurrentBalance: dec(current),
	}
}

func entry(account books.Account, date, debit, credit string) books.LedgerEntry {
	return books.LedgerEntry{
		Dimension:   books.DimensionAccount,
		DimensionID: account.ID,
		Date:        shared.MustParseDate(date),
		Debit:       dec(debit),
		Credit:      dec(credit),
	}
}

func TestBuildProfitAndLossKeepsPositiveTotals(t *testing.T) {
	sales := acct("4001", "Sales Revenue", books.AccountIncome, "0", "0")
	other := acct("4003", "Other Income", books.AccountIncome, "0", "0")
	rent := acct("5002", "Rent", books.AccountExpense, "0", "0")
	purchase := acct("5001", "Purchase", books.AccountExpense, "0", "0")
	entries := []books.LedgerEntry{
		entry(sales, "2024-04-03", "0", "1000"),
		entry(other, "2024-04-04", "25", "0"),
		entry(rent, "2024-04-05", "300", "0"),
		entry(purchase, "2024-04-06", "500", "0"),
		entry(rent, "2024-03-31", "999", "0"),
	}
	purchases := []books.Voucher{{Type: books.VoucherPurchase, Date: shared.MustParseDate("2024-04-06"), Subtotal: dec("500")}}

	pl := BuildProfitAndLoss(april, []books.Account{sales, other, rent, purchase}, entries, purchases)
	if len(pl.IncomeAccounts) != 1 || pl.IncomeAccounts[0].Code != "4001" {
		t.Fatalf("unexpected income accounts: %+v", pl.IncomeAccounts)
	}
	if len(pl.ExpenseAccounts) != 1 || pl.ExpenseAccounts[0].Code != "5002" {
		t.Fatalf("purchase account must stay out of expenses: %+v", pl.ExpenseAccounts)
	}
	if !pl.NetProfit.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected net profit 200, got %s", pl.NetProfit)
	}
}

func TestBuildTrialBalanceRollsEarlierEntriesIntoOpening(t *testing.T) {
	cash := acct("1001", "Cash", books.AccountAsset, "100", "0")
	capital := acct("3001", "Owner's Capital", books.AccountCapital, "100", "0")
	entries := []books.LedgerEntry{
		entry(cash, "2024-03-15", "40", "0"),
		entry(capital, "2024-03-15", "0", "40"),
		entry(cash, "2024-04-10", "0", "15"),
		entry(capital, "2024-04-10", "15", "0"),
		entry(cash, "2024-05-02", "70", "0"),
	}

	tb := BuildTrialBalance(april, []books.Account{capital, cash}, entries)
	if len(tb.Groups) != 2 || tb.Groups[0].Key != "10" || tb.Groups[1].Key != "30" {
		t.Fatalf("unexpected groups: %+v", tb.Groups)
	}
	row := tb.Groups[0].Accounts[0]
	if !row.Opening.Equal(dec("140")) || !row.Credit.Equal(dec("15")) || !row.Closing.Equal(dec("125")) {
		t.Fatalf("unexpected cash row: %+v", row)
	}
	if !tb.Groups[1].Accounts[0].Opening.Equal(dec("-140")) {
		t.Fatalf("credit-normal opening must be negative, got %s", tb.Groups[1].Accounts[0].Opening)
	}
	if !tb.TotalClosing.IsZero() {
		t.Fatalf("closing balances must net to zero, got %s", tb.TotalClosing)
	}
}

func TestGroupKey(t *testing.T) {
	cases := map[string]string{"1001": "10", "40.100": "40", "7": "7"}
	for code, want := range cases {
		if got := groupKey(code); got != want {
			t.Fatalf("groupKey(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestBuildStockReportSortsAndValues(t *testing.T) {
	items := []books.Item{
		{Code: "SUGAR", CurrentStock: dec("12"), PurchaseRate: dec("40.50"), ReorderLevel: dec("10")},
		{Code: "DAL", CurrentStock: dec("3"), PurchaseRate: dec("90"), ReorderLevel: dec("5")},
	}
	r := BuildStockReport(items)
	if r.Items[0].Code != "DAL" {
		t.Fatalf("expected items sorted by code, got %s first", r.Items[0].Code)
	}
	if !r.TotalStockValue.Equal(dec("756")) {
		t.Fatalf("expected total 756, got %s", r.TotalStockValue)
	}
	if r.LowStockCount != 1 || !r.Items[0].LowStock {
		t.Fatalf("expected only DAL low on stock: %+v", r.Items)
	}
}

func TestFormatAmountGroupsThousands(t *testing.T) {
	if got := formatAmount(dec("1234567.5")); got != "1,234,567.50" {
		t.Fatalf("unexpected formatting %q", got)
	}
}

func TestRenderProfitAndLossPDF(t *testing.T) {
	pl := BuildProfitAndLoss(april, nil, nil, nil)
	doc, err := RenderProfitAndLossPDF("Asha Stores", pl)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Fatalf("output is not a pdf")
	}
}
