package statements

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// BalanceSheet reports stored balances of asset, liability and capital accounts.
type BalanceSheet struct {
	AsOnDate                   shared.Date     `json:"as_on_date"`
	Assets                     []AccountAmount `json:"assets"`
	Liabilities                []AccountAmount `json:"liabilities"`
	Capital                    []AccountAmount `json:"capital"`
	TotalAssets                decimal.Decimal `json:"total_assets"`
	TotalLiabilities           decimal.Decimal `json:"total_liabilities"`
	TotalCapital               decimal.Decimal `json:"total_capital"`
	CurrentEarnings            decimal.Decimal `json:"current_earnings"`
	TotalLiabilitiesAndCapital decimal.Decimal `json:"total_liabilities_and_capital"`
}

// BuildBalanceSheet groups non-zero current balances by type. Income minus
// expense balances is reported as current earnings so both sides reconcile.
func BuildBalanceSheet(asOf shared.Date, accounts []books.Account) BalanceSheet {
	bs := BalanceSheet{
		AsOnDate:         asOf,
		Assets:           []AccountAmount{},
		Liabilities:      []AccountAmount{},
		Capital:          []AccountAmount{},
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalCapital:     decimal.Zero,
		CurrentEarnings:  decimal.Zero,
	}
	for _, acc := range accounts {
		balance := acc.CurrentBalance
		switch acc.Type {
		case books.AccountIncome:
			bs.CurrentEarnings = bs.CurrentEarnings.Add(balance)
			continue
		case books.AccountExpense:
			bs.CurrentEarnings = bs.CurrentEarnings.Sub(balance)
			continue
		}
		if balance.IsZero() {
			continue
		}
		row := AccountAmount{Code: acc.Code, Name: acc.Name, Amount: balance}
		switch acc.Type {
		case books.AccountAsset:
			bs.Assets = append(bs.Assets, row)
			bs.TotalAssets = bs.TotalAssets.Add(balance)
		case books.AccountLiability:
			bs.Liabilities = append(bs.Liabilities, row)
			bs.TotalLiabilities = bs.TotalLiabilities.Add(balance)
		case books.AccountCapital:
			bs.Capital = append(bs.Capital, row)
			bs.TotalCapital = bs.TotalCapital.Add(balance)
		}
	}

	sort.Slice(bs.Assets, func(i, j int) bool { return bs.Assets[i].Code < bs.Assets[j].Code })
	sort.Slice(bs.Liabilities, func(i, j int) bool { return bs.Liabilities[i].Code < bs.Liabilities[j].Code })
	sort.Slice(bs.Capital, func(i, j int) bool { return bs.Capital[i].Code < bs.Capital[j].Code })

	bs.TotalLiabilitiesAndCapital = bs.TotalLiabilities.Add(bs.TotalCapital).Add(bs.CurrentEarnings)
	return bs
}
