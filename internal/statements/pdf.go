package statements

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

func formatAmount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return amountPrinter.Sprintf("%.2f", f)
}

type pdfDoc struct {
	pdf *gofpdf.Fpdf
}

func newPDFDoc(title, subtitle string) *pdfDoc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, subtitle, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	return &pdfDoc{pdf: pdf}
}

func (d *pdfDoc) section(title string) {
	d.pdf.SetFont("Arial", "B", 11)
	d.pdf.SetFillColor(230, 230, 230)
	d.pdf.CellFormat(0, 7, title, "1", 1, "L", true, 0, "")
}

func (d *pdfDoc) rows(lines []AccountAmount) {
	d.pdf.SetFont("Arial", "", 10)
	if len(lines) == 0 {
		d.pdf.CellFormat(0, 6, "No entries", "LR", 1, "L", false, 0, "")
		return
	}
	for _, line := range lines {
		d.pdf.CellFormat(30, 6, line.Code, "L", 0, "L", false, 0, "")
		d.pdf.CellFormat(110, 6, line.Name, "", 0, "L", false, 0, "")
		d.pdf.CellFormat(40, 6, formatAmount(line.Amount), "R", 1, "R", false, 0, "")
	}
}

func (d *pdfDoc) total(label string, amount decimal.Decimal) {
	d.pdf.SetFont("Arial", "B", 10)
	d.pdf.CellFormat(140, 7, label, "1", 0, "L", false, 0, "")
	d.pdf.CellFormat(40, 7, formatAmount(amount), "1", 1, "R", false, 0, "")
}

func (d *pdfDoc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("statements: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderProfitAndLossPDF renders the income statement as an A4 document.
func RenderProfitAndLossPDF(company string, pl ProfitAndLoss) ([]byte, error) {
	doc := newPDFDoc(company+" - Profit & Loss", periodLabel(pl.PeriodFrom.String(), pl.PeriodTo.String()))
	doc.section("Income")
	doc.rows(pl.IncomeAccounts)
	doc.total("Total Income", pl.TotalIncome)
	doc.pdf.Ln(3)
	doc.total("Cost of Goods Sold", pl.CostOfGoodsSold)
	doc.total("Gross Profit", pl.GrossProfit)
	doc.pdf.Ln(3)
	doc.section("Expenses")
	doc.rows(pl.ExpenseAccounts)
	doc.total("Total Expenses", pl.TotalExpenses)
	doc.pdf.Ln(3)
	doc.total("Net Profit", pl.NetProfit)
	return doc.bytes()
}

// RenderBalanceSheetPDF renders the balance sheet as an A4 document.
func RenderBalanceSheetPDF(company string, bs BalanceSheet) ([]byte, error) {
	doc := newPDFDoc(company+" - Balance Sheet", "As on "+bs.AsOnDate.String())
	doc.section("Assets")
	doc.rows(bs.Assets)
	doc.total("Total Assets", bs.TotalAssets)
	doc.pdf.Ln(3)
	doc.section("Liabilities")
	doc.rows(bs.Liabilities)
	doc.total("Total Liabilities", bs.TotalLiabilities)
	doc.pdf.Ln(3)
	doc.section("Capital")
	doc.rows(bs.Capital)
	doc.total("Total Capital", bs.TotalCapital)
	doc.total("Current Earnings", bs.CurrentEarnings)
	doc.pdf.Ln(3)
	doc.total("Total Liabilities & Capital", bs.TotalLiabilitiesAndCapital)
	return doc.bytes()
}

func periodLabel(from, to string) string {
	switch {
	case from == "" && to == "":
		return "All dates"
	case from == "":
		return "Up to " + to
	case to == "":
		return "From " + from
	}
	return from + " to " + to
}
