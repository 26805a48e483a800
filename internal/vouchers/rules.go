package vouchers

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
)

type side int

const (
	debit side = iota
	credit
)

// accountRole selects the account a leg posts to.
type accountRole int

const (
	// systemAccount resolves a chart code.
	systemAccount accountRole = iota
	// partyControl resolves the control account of the voucher's party type.
	partyControl
	// primaryAccount is the caller-supplied account: cash/bank, expense or contra destination.
	primaryAccount
	// counterAccount is the caller-supplied offset: paid-from or contra source.
	counterAccount
)

type selector struct {
	role accountRole
	code string
}

func byCode(code string) selector { return selector{role: systemAccount, code: code} }

var (
	controlOfParty = selector{role: partyControl}
	primary        = selector{role: primaryAccount}
	counter        = selector{role: counterAccount}
)

type amountFn func(v *books.Voucher) decimal.Decimal

func total(v *books.Voucher) decimal.Decimal     { return v.Total }
func subtotal(v *books.Voucher) decimal.Decimal  { return v.Subtotal }
func taxAmount(v *books.Voucher) decimal.Decimal { return v.TaxAmount }
func discount(v *books.Voucher) decimal.Decimal  { return v.Discount }

// leg is one journal line template. Optional legs are skipped when their amount is zero.
type leg struct {
	side      side
	account   selector
	amount    amountFn
	optional  bool
	narration string
}

// rule describes how one voucher type posts.
type rule struct {
	legs []leg
	// explicit rules take their lines from the request.
	explicit bool
	// stockSign is -1 for issues, +1 for receipts and 0 when items do not move.
	stockSign int
	// partyType fixes the party kind; empty means the party decides it.
	partyType books.PartyType
	// partySide is the side of the single party ledger entry; nil when no party is involved.
	partySide *side

	partyField   string
	primaryField string
	counterField string
	// primaryTypes restricts the primary account's type when set.
	primaryTypes []books.AccountType
	particulars  string
}

func sidePtr(s side) *side { return &s }

var rules = map[books.VoucherType]rule{
	books.VoucherSales: {
		legs: []leg{
			{side: debit, account: controlOfParty, amount: total, narration: "Sales invoice"},
			{side: debit, account: byCode(books.CodeDiscountAllowed), amount: discount, optional: true, narration: "Discount allowed"},
			{side: credit, account: byCode(books.CodeSalesRevenue), amount: subtotal, narration: "Sales revenue"},
			{side: credit, account: byCode(books.CodeGSTOutput), amount: taxAmount, optional: true, narration: "GST collected"},
		},
		stockSign:   -1,
		partyType:   books.PartyCustomer,
		partySide:   sidePtr(debit),
		partyField:  "customer_id",
		particulars: "Sales invoice",
	},
	books.VoucherPurchase: {
		legs: []leg{
			{side: debit, account: byCode(books.CodePurchase), amount: subtotal, narration: "Purchase"},
			{side: debit, account: byCode(books.CodeGSTInput), amount: taxAmount, optional: true, narration: "GST input credit"},
			{side: credit, account: controlOfParty, amount: total, narration: "Purchase bill"},
			{side: credit, account: byCode(books.CodeDiscountReceived), amount: discount, optional: true, narration: "Discount received"},
		},
		stockSign:   1,
		partyType:   books.PartySupplier,
		partySide:   sidePtr(credit),
		partyField:  "supplier_id",
		particulars: "Purchase bill",
	},
	books.VoucherPayment: {
		legs: []leg{
			{side: debit, account: controlOfParty, amount: total, narration: "Payment made"},
			{side: credit, account: primary, amount: total, narration: "Payment made"},
		},
		partySide:    sidePtr(debit),
		partyField:   "party_id",
		primaryField: "account_id",
		primaryTypes: []books.AccountType{books.AccountAsset},
		particulars:  "Payment",
	},
	books.VoucherReceipt: {
		legs: []leg{
			{side: debit, account: primary, amount: total, narration: "Payment received"},
			{side: credit, account: controlOfParty, amount: total, narration: "Payment received"},
		},
		partySide:    sidePtr(credit),
		partyField:   "party_id",
		primaryField: "account_id",
		primaryTypes: []books.AccountType{books.AccountAsset},
		particulars:  "Receipt",
	},
	books.VoucherExpense: {
		legs: []leg{
			{side: debit, account: primary, amount: total, narration: "Expense"},
			{side: credit, account: counter, amount: total, narration: "Expense paid"},
		},
		primaryField: "expense_account_id",
		counterField: "paid_from_account_id",
		primaryTypes: []books.AccountType{books.AccountExpense},
		particulars:  "Expense",
	},
	books.VoucherJournal: {
		explicit:    true,
		particulars: "Journal",
	},
	books.VoucherContra: {
		legs: []leg{
			{side: debit, account: primary, amount: total, narration: "Contra transfer in"},
			{side: credit, account: counter, amount: total, narration: "Contra transfer out"},
		},
		primaryField: "to_account_id",
		counterField: "from_account_id",
		particulars:  "Contra",
	},
}

func ruleFor(t books.VoucherType) (rule, bool) {
	r, ok := rules[t]
	return r, ok
}

func (r rule) hasParty() bool {
	return r.partySide != nil
}
