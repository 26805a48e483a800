// Package masterdata owns accounts, parties and items: identity, unique codes
// and the default chart of accounts.
package masterdata

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

var (
	// ErrSystemAccount indicates an attempt to delete a protected account.
	ErrSystemAccount = fmt.Errorf("masterdata: system accounts cannot be deleted: %w", shared.ErrConflict)
	// ErrAccountInUse indicates the account is referenced by postings.
	ErrAccountInUse = fmt.Errorf("masterdata: account is referenced by vouchers: %w", shared.ErrConflict)
)

// AccountInput captures a new chart of accounts entry.
type AccountInput struct {
	Code           string
	Name           string
	Group          string
	Type           books.AccountType
	OpeningBalance decimal.Decimal
	IsSystem       bool
}

func (in *AccountInput) normalize() error {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Group = strings.TrimSpace(in.Group)
	if in.Code == "" {
		return shared.Invalid("code", "is required")
	}
	if in.Name == "" {
		return shared.Invalid("name", "is required")
	}
	if !in.Type.Valid() {
		return shared.Invalid("account_type", "must be asset, liability, capital, income or expense")
	}
	if in.OpeningBalance.IsNegative() {
		return shared.Invalid("opening_balance", "must not be negative")
	}
	in.OpeningBalance = shared.Money(in.OpeningBalance)
	return nil
}

// PartyInput captures a new customer or supplier.
type PartyInput struct {
	Type           books.PartyType
	Code           string
	Name           string
	ContactPerson  string
	Phone          string
	Email          string
	Address        string
	GSTIN          string
	OpeningBalance decimal.Decimal
	BalanceType    books.BalanceType
}

func (in *PartyInput) normalize() error {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.GSTIN = strings.ToUpper(strings.TrimSpace(in.GSTIN))
	if !in.Type.Valid() {
		return shared.Invalid("party_type", "must be customer or supplier")
	}
	if in.Code == "" {
		return shared.Invalid("code", "is required")
	}
	if in.Name == "" {
		return shared.Invalid("name", "is required")
	}
	if in.OpeningBalance.IsNegative() {
		return shared.Invalid("opening_balance", "must not be negative")
	}
	switch in.BalanceType {
	case "":
		in.BalanceType = books.BalanceDebit
		if in.Type == books.PartySupplier {
			in.BalanceType = books.BalanceCredit
		}
	case books.BalanceDebit, books.BalanceCredit:
	default:
		return shared.Invalid("balance_type", "must be debit or credit")
	}
	in.OpeningBalance = shared.Money(in.OpeningBalance)
	return nil
}

// ItemInput captures a new inventory item.
type ItemInput struct {
	Code         string
	Name         string
	Category     string
	Unit         string
	HSNCode      string
	PurchaseRate decimal.Decimal
	SaleRate     decimal.Decimal
	GSTRate      decimal.Decimal
	OpeningStock decimal.Decimal
	ReorderLevel decimal.Decimal
}

func (in *ItemInput) normalize() error {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" {
		return shared.Invalid("code", "is required")
	}
	if in.Name == "" {
		return shared.Invalid("name", "is required")
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"purchase_rate", in.PurchaseRate},
		{"sale_rate", in.SaleRate},
		{"gst_rate", in.GSTRate},
		{"opening_stock", in.OpeningStock},
		{"reorder_level", in.ReorderLevel},
	} {
		if f.value.IsNegative() {
			return shared.Invalid(f.name, "must not be negative")
		}
	}
	in.PurchaseRate = shared.Money(in.PurchaseRate)
	in.SaleRate = shared.Money(in.SaleRate)
	in.GSTRate = shared.Money(in.GSTRate)
	in.OpeningStock = shared.Quantity(in.OpeningStock)
	in.ReorderLevel = shared.Quantity(in.ReorderLevel)
	return nil
}
