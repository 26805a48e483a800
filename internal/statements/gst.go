package statements

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// GSTReport summarises tax collected on sales against tax paid on purchases.
type GSTReport struct {
	PeriodFrom     shared.Date     `json:"period_from"`
	PeriodTo       shared.Date     `json:"period_to"`
	OutputGST      decimal.Decimal `json:"output_gst"`
	InputGST       decimal.Decimal `json:"input_gst"`
	NetGSTPayable  decimal.Decimal `json:"net_gst_payable"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	TotalPurchases decimal.Decimal `json:"total_purchases"`
	SalesInvoices  int             `json:"sales_invoices"`
	PurchaseBills  int             `json:"purchase_bills"`
}

// BuildGSTReport sums sales and purchase vouchers dated inside rng.
func BuildGSTReport(rng shared.DateRange, vouchers []books.Voucher) GSTReport {
	r := GSTReport{
		PeriodFrom:     rng.From,
		PeriodTo:       rng.To,
		OutputGST:      decimal.Zero,
		InputGST:       decimal.Zero,
		TotalSales:     decimal.Zero,
		TotalPurchases: decimal.Zero,
	}
	for _, v := range vouchers {
		if !rng.Contains(v.Date) {
			continue
		}
		switch v.Type {
		case books.VoucherSales:
			r.OutputGST = r.OutputGST.Add(v.TaxAmount)
			r.TotalSales = r.TotalSales.Add(v.Total)
			r.SalesInvoices++
		case books.VoucherPurchase:
			r.InputGST = r.InputGST.Add(v.TaxAmount)
			r.TotalPurchases = r.TotalPurchases.Add(v.Total)
			r.PurchaseBills++
		}
	}
	r.NetGSTPayable = r.OutputGST.Sub(r.InputGST)
	return r
}
