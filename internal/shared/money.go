package shared

import "github.com/shopspring/decimal"

// Cent is the smallest money unit tracked by the books.
var Cent = decimal.New(1, -2)

// Money rounds an amount to cents.
func Money(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Quantity rounds a stock quantity to three places.
func Quantity(v decimal.Decimal) decimal.Decimal {
	return v.Round(3)
}

// WithinCent reports whether a and b differ by less than one cent.
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Cent)
}

// Sum adds values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
