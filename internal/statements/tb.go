package statements

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// TrialBalanceAccount is one account row. Amounts are debit-positive.
type TrialBalanceAccount struct {
	Code    string          `json:"account_code"`
	Name    string          `json:"account_name"`
	Type    string          `json:"account_type"`
	Opening decimal.Decimal `json:"opening"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Closing decimal.Decimal `json:"closing"`
}

// TrialBalanceGroup aggregates accounts sharing a code prefix.
type TrialBalanceGroup struct {
	Key      string                `json:"key"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Opening  decimal.Decimal       `json:"opening"`
	Debit    decimal.Decimal       `json:"debit"`
	Credit   decimal.Decimal       `json:"credit"`
	Closing  decimal.Decimal       `json:"closing"`
}

// TrialBalance lists period movement for every account.
type TrialBalance struct {
	PeriodFrom   shared.Date         `json:"period_from"`
	PeriodTo     shared.Date         `json:"period_to"`
	Groups       []TrialBalanceGroup `json:"groups"`
	TotalOpening decimal.Decimal     `json:"total_opening"`
	TotalDebit   decimal.Decimal     `json:"total_debit"`
	TotalCredit  decimal.Decimal     `json:"total_credit"`
	TotalClosing decimal.Decimal     `json:"total_closing"`
}

func groupKey(code string) string {
	if idx := strings.Index(code, "."); idx > 0 {
		return code[:idx]
	}
	if len(code) >= 2 {
		return code[:2]
	}
	return code
}

// BuildTrialBalance folds account ledger entries into opening, period debit,
// period credit and closing per account. Entries before rng.From roll into the
// opening balance; entries after rng.To are ignored.
func BuildTrialBalance(rng shared.DateRange, accounts []books.Account, entries []books.LedgerEntry) TrialBalance {
	type totals struct{ before, debit, credit decimal.Decimal }
	moved := make(map[uuid.UUID]totals, len(accounts))
	for _, e := range entries {
		if e.Dimension != books.DimensionAccount {
			continue
		}
		if !rng.To.IsZero() && e.Date.After(rng.To) {
			continue
		}
		t := moved[e.DimensionID]
		if !rng.From.IsZero() && e.Date.Before(rng.From) {
			t.before = t.before.Add(e.Debit).Sub(e.Credit)
		} else {
			t.debit = t.debit.Add(e.Debit)
			t.credit = t.credit.Add(e.Credit)
		}
		moved[e.DimensionID] = t
	}

	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range accounts {
		key := groupKey(acc.Code)
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Opening: decimal.Zero, Debit: decimal.Zero, Credit: decimal.Zero, Closing: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		t := moved[acc.ID]
		opening := acc.OpeningBalance
		if !acc.Type.DebitNormal() {
			opening = opening.Neg()
		}
		opening = opening.Add(t.before)
		row := TrialBalanceAccount{
			Code:    acc.Code,
			Name:    acc.Name,
			Type:    string(acc.Type),
			Opening: opening,
			Debit:   t.debit,
			Credit:  t.credit,
			Closing: opening.Add(t.debit).Sub(t.credit),
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Opening = grp.Opening.Add(row.Opening)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.Closing = grp.Closing.Add(row.Closing)
	}

	sort.Strings(keys)
	tb := TrialBalance{
		PeriodFrom:   rng.From,
		PeriodTo:     rng.To,
		Groups:       []TrialBalanceGroup{},
		TotalOpening: decimal.Zero,
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
		TotalClosing: decimal.Zero,
	}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool { return grp.Accounts[i].Code < grp.Accounts[j].Code })
		tb.Groups = append(tb.Groups, *grp)
		tb.TotalOpening = tb.TotalOpening.Add(grp.Opening)
		tb.TotalDebit = tb.TotalDebit.Add(grp.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(grp.Credit)
		tb.TotalClosing = tb.TotalClosing.Add(grp.Closing)
	}
	return tb
}
