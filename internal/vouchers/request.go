package vouchers

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

const maxNumberLength = 50

// ItemLine is one stock line of a sales or purchase request.
type ItemLine struct {
	ItemID   uuid.UUID
	Quantity decimal.Decimal
	Rate     decimal.Decimal
	TaxRate  decimal.Decimal
}

// LineInput is one explicit journal line.
type LineInput struct {
	AccountID uuid.UUID
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Narration string
}

// Request carries a voucher to post. Which references apply depends on Type:
//
//	sales, purchase   PartyID, Items or Subtotal, TaxAmount, Discount, Total
//	payment, receipt  PartyID, AccountID (cash/bank), Amount
//	expense           AccountID (expense), CounterAccountID (paid from), Amount
//	contra            AccountID (to), CounterAccountID (from), Amount
//	journal           Lines
type Request struct {
	Type             books.VoucherType
	Number           string
	Date             shared.Date
	PartyID          uuid.UUID
	AccountID        uuid.UUID
	CounterAccountID uuid.UUID
	Items            []ItemLine
	Lines            []LineInput

	Subtotal  decimal.NullDecimal
	TaxAmount decimal.NullDecimal
	Discount  decimal.Decimal
	Total     decimal.NullDecimal
	Amount    decimal.Decimal

	PaymentMode books.PaymentMode
	Reference   string
	Notes       string
}

// draft validates the request and returns the voucher it describes, without ids resolved.
func (req Request) draft() (books.Voucher, rule, error) {
	r, ok := ruleFor(req.Type)
	if !ok {
		return books.Voucher{}, rule{}, shared.Invalid("voucher_type", "unknown voucher type")
	}
	v := books.Voucher{
		Type:        req.Type,
		Number:      strings.TrimSpace(req.Number),
		Date:        req.Date,
		PaymentMode: req.PaymentMode,
		Reference:   strings.TrimSpace(req.Reference),
		Notes:       strings.TrimSpace(req.Notes),
		Subtotal:    decimal.Zero,
		TaxAmount:   decimal.Zero,
		Discount:    decimal.Zero,
		PaidAmount:  decimal.Zero,
	}
	switch {
	case v.Number == "":
		return v, r, shared.Invalid("voucher_number", "is required")
	case len(v.Number) > maxNumberLength:
		return v, r, shared.Invalid("voucher_number", fmt.Sprintf("must be at most %d characters", maxNumberLength))
	case v.Date.IsZero():
		return v, r, shared.Invalid("voucher_date", "is required")
	case !v.PaymentMode.Valid():
		return v, r, shared.Invalid("payment_mode", "must be cash, bank, upi or cheque")
	}
	if len(req.Items) > 0 && r.stockSign == 0 {
		return v, r, shared.Invalid("items", fmt.Sprintf("not allowed on %s vouchers", req.Type))
	}
	if len(req.Lines) > 0 && !r.explicit {
		return v, r, shared.Invalid("lines", fmt.Sprintf("not allowed on %s vouchers", req.Type))
	}

	if r.hasParty() {
		if req.PartyID == uuid.Nil {
			return v, r, shared.Invalid(r.partyField, "is required")
		}
		id := req.PartyID
		v.PartyID = &id
		v.PartyType = r.partyType
	}
	if r.primaryField != "" {
		if req.AccountID == uuid.Nil {
			return v, r, shared.Invalid(r.primaryField, "is required")
		}
		id := req.AccountID
		v.AccountID = &id
	}
	if r.counterField != "" {
		if req.CounterAccountID == uuid.Nil {
			return v, r, shared.Invalid(r.counterField, "is required")
		}
		if req.CounterAccountID == req.AccountID {
			return v, r, shared.Invalid(r.primaryField, "must differ from "+r.counterField)
		}
		id := req.CounterAccountID
		v.CounterAccountID = &id
	}

	var err error
	switch {
	case r.explicit:
		err = req.journalAmounts(&v)
	case req.Type.Invoiced():
		err = req.invoiceAmounts(&v)
		v.PaymentStatus = books.PaymentUnpaid
	default:
		amount := shared.Money(req.Amount)
		if !amount.IsPositive() {
			return v, r, shared.Invalid("amount", "must be greater than zero")
		}
		v.Total = amount
	}
	return v, r, err
}

func (req Request) invoiceAmounts(v *books.Voucher) error {
	subtotal, tax := decimal.Zero, decimal.Zero
	v.Items = make([]books.VoucherItem, 0, len(req.Items))
	for i, line := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		qty := shared.Quantity(line.Quantity)
		switch {
		case line.ItemID == uuid.Nil:
			return shared.Invalid(field+".item_id", "is required")
		case !qty.IsPositive():
			return shared.Invalid(field+".quantity", "must be greater than zero")
		case line.Rate.IsNegative():
			return shared.Invalid(field+".rate", "must not be negative")
		case line.TaxRate.IsNegative():
			return shared.Invalid(field+".tax_rate", "must not be negative")
		}
		amount := shared.Money(qty.Mul(line.Rate))
		lineTax := shared.Money(amount.Mul(line.TaxRate).Div(decimal.NewFromInt(100)))
		v.Items = append(v.Items, books.VoucherItem{
			ItemID:    line.ItemID,
			Quantity:  qty,
			Rate:      shared.Money(line.Rate),
			Amount:    amount,
			TaxRate:   line.TaxRate,
			TaxAmount: lineTax,
			Total:     amount.Add(lineTax),
		})
		subtotal = subtotal.Add(amount)
		tax = tax.Add(lineTax)
	}

	if len(v.Items) == 0 {
		if !req.Subtotal.Valid {
			return shared.Invalid("items", "items or subtotal required")
		}
		subtotal = shared.Money(req.Subtotal.Decimal)
		if req.TaxAmount.Valid {
			tax = shared.Money(req.TaxAmount.Decimal)
		}
	} else {
		if req.Subtotal.Valid && !shared.WithinCent(shared.Money(req.Subtotal.Decimal), subtotal) {
			return shared.Invalid("subtotal", fmt.Sprintf("must equal the item amounts (%s)", subtotal.StringFixed(2)))
		}
		if req.TaxAmount.Valid && !shared.WithinCent(shared.Money(req.TaxAmount.Decimal), tax) {
			return shared.Invalid("tax_amount", fmt.Sprintf("must equal the item taxes (%s)", tax.StringFixed(2)))
		}
	}
	discount := shared.Money(req.Discount)
	switch {
	case !subtotal.IsPositive():
		return shared.Invalid("subtotal", "must be greater than zero")
	case tax.IsNegative():
		return shared.Invalid("tax_amount", "must not be negative")
	case discount.IsNegative():
		return shared.Invalid("discount", "must not be negative")
	}
	total := subtotal.Add(tax).Sub(discount)
	if !total.IsPositive() {
		return shared.Invalid("discount", "must be less than subtotal plus tax")
	}
	if req.Total.Valid && !shared.WithinCent(shared.Money(req.Total.Decimal), total) {
		return shared.Invalid("total_amount", "must equal subtotal + tax_amount - discount")
	}
	v.Subtotal, v.TaxAmount, v.Discount, v.Total = subtotal, tax, discount, total
	return nil
}

func (req Request) journalAmounts(v *books.Voucher) error {
	if len(req.Lines) < 2 {
		return shared.Invalid("lines", "a journal needs at least two lines")
	}
	debits, credits := decimal.Zero, decimal.Zero
	v.Lines = make([]books.JournalLine, 0, len(req.Lines))
	for i, line := range req.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		dr, cr := shared.Money(line.Debit), shared.Money(line.Credit)
		switch {
		case line.AccountID == uuid.Nil:
			return shared.Invalid(field+".account_id", "is required")
		case dr.IsNegative():
			return shared.Invalid(field+".debit", "must not be negative")
		case cr.IsNegative():
			return shared.Invalid(field+".credit", "must not be negative")
		case dr.IsPositive() == cr.IsPositive():
			return shared.Invalid(field+".debit", "exactly one of debit or credit must be greater than zero")
		}
		v.Lines = append(v.Lines, books.JournalLine{
			AccountID: line.AccountID,
			Debit:     dr,
			Credit:    cr,
			Narration: strings.TrimSpace(line.Narration),
		})
		debits = debits.Add(dr)
		credits = credits.Add(cr)
	}
	if !shared.WithinCent(debits, credits) {
		return fmt.Errorf("%w: debit %s, credit %s", ErrUnbalancedJournal, debits.StringFixed(2), credits.StringFixed(2))
	}
	v.Total = debits
	return nil
}
