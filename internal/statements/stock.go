package statements

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// StockLine is one item of the stock report.
type StockLine struct {
	Code         string          `json:"item_code"`
	Name         string          `json:"item_name"`
	Category     string          `json:"category,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	PurchaseRate decimal.Decimal `json:"purchase_rate"`
	SaleRate     decimal.Decimal `json:"sale_rate"`
	StockValue   decimal.Decimal `json:"stock_value"`
	LowStock     bool            `json:"low_stock"`
}

// StockReport values stock on hand at purchase rate.
type StockReport struct {
	Items           []StockLine     `json:"items"`
	TotalStockValue decimal.Decimal `json:"total_stock_value"`
	LowStockCount   int             `json:"low_stock_count"`
}

// BuildStockReport lists items by code. An item is low on stock when it is at
// or below its reorder level.
func BuildStockReport(items []books.Item) StockReport {
	r := StockReport{Items: make([]StockLine, 0, len(items)), TotalStockValue: decimal.Zero}
	for _, item := range items {
		value := shared.Money(item.CurrentStock.Mul(item.PurchaseRate))
		low := item.CurrentStock.LessThanOrEqual(item.ReorderLevel)
		r.Items = append(r.Items, StockLine{
			Code:         item.Code,
			Name:         item.Name,
			Category:     item.Category,
			Unit:         item.Unit,
			CurrentStock: item.CurrentStock,
			ReorderLevel: item.ReorderLevel,
			PurchaseRate: item.PurchaseRate,
			SaleRate:     item.SaleRate,
			StockValue:   value,
			LowStock:     low,
		})
		r.TotalStockValue = r.TotalStockValue.Add(value)
		if low {
			r.LowStockCount++
		}
	}
	sort.Slice(r.Items, func(i, j int) bool { return r.Items[i].Code < r.Items[j].Code })
	return r
}
