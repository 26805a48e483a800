// Package statements builds financial statements from the books.
package statements

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// AccountAmount is one account line of a statement.
type AccountAmount struct {
	Code   string          `json:"account_code"`
	Name   string          `json:"account_name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitAndLoss is the income statement for a period.
type ProfitAndLoss struct {
	PeriodFrom      shared.Date     `json:"period_from"`
	PeriodTo        shared.Date     `json:"period_to"`
	IncomeAccounts  []AccountAmount `json:"income_accounts"`
	ExpenseAccounts []AccountAmount `json:"expense_accounts"`
	TotalIncome     decimal.Decimal `json:"total_income"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	CostOfGoodsSold decimal.Decimal `json:"cost_of_goods_sold"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	NetProfit       decimal.Decimal `json:"net_profit"`
}

// BuildProfitAndLoss aggregates account ledger entries inside rng. Income
// accounts contribute credit minus debit and expense accounts debit minus
// credit; only positive totals are kept. The purchase account is left out of
// expenses because cost of goods sold already counts purchases, approximated
// as the subtotal of purchase vouchers dated inside rng.
func BuildProfitAndLoss(rng shared.DateRange, accounts []books.Account, entries []books.LedgerEntry, purchases []books.Voucher) ProfitAndLoss {
	type sides struct{ debit, credit decimal.Decimal }
	moved := make(map[uuid.UUID]sides, len(accounts))
	for _, e := range entries {
		if e.Dimension != books.DimensionAccount || !rng.Contains(e.Date) {
			continue
		}
		s := moved[e.DimensionID]
		s.debit = s.debit.Add(e.Debit)
		s.credit = s.credit.Add(e.Credit)
		moved[e.DimensionID] = s
	}

	pl := ProfitAndLoss{
		PeriodFrom:      rng.From,
		PeriodTo:        rng.To,
		IncomeAccounts:  []AccountAmount{},
		ExpenseAccounts: []AccountAmount{},
		TotalIncome:     decimal.Zero,
		TotalExpenses:   decimal.Zero,
		CostOfGoodsSold: decimal.Zero,
	}
	for _, acc := range accounts {
		s := moved[acc.ID]
		switch {
		case acc.Type == books.AccountIncome:
			amount := s.credit.Sub(s.debit)
			if amount.IsPositive() {
				pl.IncomeAccounts = append(pl.IncomeAccounts, AccountAmount{Code: acc.Code, Name: acc.Name, Amount: amount})
				pl.TotalIncome = pl.TotalIncome.Add(amount)
			}
		case acc.Type == books.AccountExpense && acc.Code != books.CodePurchase:
			amount := s.debit.Sub(s.credit)
			if amount.IsPositive() {
				pl.ExpenseAccounts = append(pl.ExpenseAccounts, AccountAmount{Code: acc.Code, Name: acc.Name, Amount: amount})
				pl.TotalExpenses = pl.TotalExpenses.Add(amount)
			}
		}
	}
	for _, v := range purchases {
		if v.Type == books.VoucherPurchase && rng.Contains(v.Date) {
			pl.CostOfGoodsSold = pl.CostOfGoodsSold.Add(v.Subtotal)
		}
	}

	sort.Slice(pl.IncomeAccounts, func(i, j int) bool { return pl.IncomeAccounts[i].Code < pl.IncomeAccounts[j].Code })
	sort.Slice(pl.ExpenseAccounts, func(i, j int) bool { return pl.ExpenseAccounts[i].Code < pl.ExpenseAccounts[j].Code })

	pl.GrossProfit = pl.TotalIncome.Sub(pl.CostOfGoodsSold)
	pl.NetProfit = pl.GrossProfit.Sub(pl.TotalExpenses)
	return pl
}
