// Package books holds the bookkeeping domain model shared by the posting,
// ledger and reporting services.
package books

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountCapital   AccountType = "capital"
	AccountIncome    AccountType = "income"
	AccountExpense   AccountType = "expense"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountCapital, AccountIncome, AccountExpense:
		return true
	}
	return false
}

// DebitNormal reports whether debits increase the balance of accounts of type t.
func (t AccountType) DebitNormal() bool {
	return t == AccountAsset || t == AccountExpense
}

// Delta returns the balance change a debit/credit pair causes on an account of type t.
func (t AccountType) Delta(debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Account models a chart of accounts node.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Group          string          `json:"group,omitempty"`
	Type           AccountType     `json:"account_type"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsSystem       bool            `json:"is_system"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PartyType distinguishes customers from suppliers.
type PartyType string

const (
	PartyCustomer PartyType = "customer"
	PartySupplier PartyType = "supplier"
)

// Valid reports whether t is a known party type.
func (t PartyType) Valid() bool {
	return t == PartyCustomer || t == PartySupplier
}

// BalanceType is the side an opening balance sits on.
type BalanceType string

const (
	BalanceDebit  BalanceType = "debit"
	BalanceCredit BalanceType = "credit"
)

// Party is a customer or supplier.
type Party struct {
	ID             uuid.UUID       `json:"id"`
	Type           PartyType       `json:"party_type"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	ContactPerson  string          `json:"contact_person,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Email          string          `json:"email,omitempty"`
	Address        string          `json:"address,omitempty"`
	GSTIN          string          `json:"gstin,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	BalanceType    BalanceType     `json:"balance_type"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Item is an inventory master.
type Item struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	HSNCode      string          `json:"hsn_code,omitempty"`
	PurchaseRate decimal.Decimal `json:"purchase_rate"`
	SaleRate     decimal.Decimal `json:"sale_rate"`
	GSTRate      decimal.Decimal `json:"gst_rate"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	CreatedAt    time.Time       `json:"created_at"`
}

// VoucherType enumerates the posting document kinds.
type VoucherType string

const (
	VoucherSales    VoucherType = "sales"
	VoucherPurchase VoucherType = "purchase"
	VoucherPayment  VoucherType = "payment"
	VoucherReceipt  VoucherType = "receipt"
	VoucherExpense  VoucherType = "expense"
	VoucherJournal  VoucherType = "journal"
	VoucherContra   VoucherType = "contra"
)

// VoucherTypes lists every voucher type in display order.
var VoucherTypes = []VoucherType{
	VoucherSales, VoucherPurchase, VoucherPayment, VoucherReceipt,
	VoucherExpense, VoucherJournal, VoucherContra,
}

// Valid reports whether t is a known voucher type.
func (t VoucherType) Valid() bool {
	for _, known := range VoucherTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Invoiced reports whether vouchers of type t carry items and a payment status.
func (t VoucherType) Invoiced() bool {
	return t == VoucherSales || t == VoucherPurchase
}

// PaymentMode records how money moved.
type PaymentMode string

const (
	PaymentCash   PaymentMode = "cash"
	PaymentBank   PaymentMode = "bank"
	PaymentUPI    PaymentMode = "upi"
	PaymentCheque PaymentMode = "cheque"
)

// Valid reports whether m is a known mode. The empty mode is allowed.
func (m PaymentMode) Valid() bool {
	switch m {
	case "", PaymentCash, PaymentBank, PaymentUPI, PaymentCheque:
		return true
	}
	return false
}

// PaymentStatus tracks settlement of a sales or purchase voucher.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// StatusFor derives the status for a paid amount against a total.
func StatusFor(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total) && paid.IsPositive():
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}

// VoucherItem is a stock line on a sales or purchase voucher.
type VoucherItem struct {
	ItemID    uuid.UUID       `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
}

// Voucher is a posted business document. Type decides which optional fields are set:
// AccountID is the cash/bank account for payments and receipts, the expense account
// for expenses and the destination for contras; CounterAccountID is the paid-from
// account for expenses and the source for contras.
type Voucher struct {
	ID               uuid.UUID       `json:"id"`
	Type             VoucherType     `json:"voucher_type"`
	Number           string          `json:"voucher_number"`
	Date             shared.Date     `json:"voucher_date"`
	PartyID          *uuid.UUID      `json:"party_id,omitempty"`
	PartyType        PartyType       `json:"party_type,omitempty"`
	AccountID        *uuid.UUID      `json:"account_id,omitempty"`
	CounterAccountID *uuid.UUID      `json:"counter_account_id,omitempty"`
	Items            []VoucherItem   `json:"items,omitempty"`
	Lines            []JournalLine   `json:"lines,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	Discount         decimal.Decimal `json:"discount"`
	Total            decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	PaymentStatus    PaymentStatus   `json:"payment_status,omitempty"`
	PaymentMode      PaymentMode     `json:"payment_mode,omitempty"`
	Reference        string          `json:"reference,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Outstanding returns total minus paid for invoiced vouchers.
func (v Voucher) Outstanding() decimal.Decimal {
	return v.Total.Sub(v.PaidAmount)
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	AccountID uuid.UUID       `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration,omitempty"`
}

// JournalEntry is the balanced set of lines derived from one voucher.
type JournalEntry struct {
	ID            uuid.UUID     `json:"id"`
	VoucherID     uuid.UUID     `json:"voucher_id"`
	VoucherType   VoucherType   `json:"voucher_type"`
	VoucherNumber string        `json:"voucher_number"`
	Date          shared.Date   `json:"entry_date"`
	Narration     string        `json:"narration,omitempty"`
	Lines         []JournalLine `json:"lines"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Totals returns the debit and credit sums.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// Balanced reports whether debits equal credits exactly.
func (e JournalEntry) Balanced() bool {
	debit, credit := e.Totals()
	return debit.Equal(credit)
}

// Dimension selects which master a ledger entry belongs to.
type Dimension string

const (
	DimensionAccount Dimension = "account"
	DimensionParty   Dimension = "party"
	DimensionItem    Dimension = "item"
)

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	return d == DimensionAccount || d == DimensionParty || d == DimensionItem
}

// LedgerEntry is one append-only movement against an account, party or item.
// Money ledgers use Debit/Credit, the item ledger uses QuantityIn/QuantityOut.
// Seq orders entries that share a date.
type LedgerEntry struct {
	Seq           int64           `json:"seq"`
	ID            uuid.UUID       `json:"id"`
	Date          shared.Date     `json:"date"`
	Dimension     Dimension       `json:"dimension"`
	DimensionID   uuid.UUID       `json:"dimension_id"`
	VoucherID     uuid.UUID       `json:"voucher_id"`
	VoucherType   VoucherType     `json:"voucher_type"`
	VoucherNumber string          `json:"voucher_number"`
	Particulars   string          `json:"particulars"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	QuantityIn    decimal.Decimal `json:"quantity_in"`
	QuantityOut   decimal.Decimal `json:"quantity_out"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Movement returns the signed change the entry contributes to a running balance.
func (e LedgerEntry) Movement() decimal.Decimal {
	if e.Dimension == DimensionItem {
		return e.QuantityIn.Sub(e.QuantityOut)
	}
	return e.Debit.Sub(e.Credit)
}

// LedgerFilter narrows ledger reads. A nil ID matches every owner of the dimension.
type LedgerFilter struct {
	Dimension Dimension
	ID        uuid.UUID
	Range     shared.DateRange
}

// VoucherFilter narrows voucher reads. Empty fields match everything.
type VoucherFilter struct {
	Type    VoucherType
	PartyID uuid.UUID
	Range   shared.DateRange
	// HeadersOnly skips loading item lines and journal lines.
	HeadersOnly bool
}
