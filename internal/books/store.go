package books

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reader exposes committed book state. Reads never block postings.
type Reader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	AccountByCode(ctx context.Context, code string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)

	GetParty(ctx context.Context, id uuid.UUID) (Party, error)
	PartyByCode(ctx context.Context, partyType PartyType, code string) (Party, error)
	ListParties(ctx context.Context, partyType PartyType) ([]Party, error)

	GetItem(ctx context.Context, id uuid.UUID) (Item, error)
	ItemByCode(ctx context.Context, code string) (Item, error)
	ListItems(ctx context.Context) ([]Item, error)

	GetVoucher(ctx context.Context, voucherType VoucherType, id uuid.UUID) (Voucher, error)
	ListVouchers(ctx context.Context, filter VoucherFilter) ([]Voucher, error)
	JournalForVoucher(ctx context.Context, voucherID uuid.UUID) (JournalEntry, error)
	ListJournalEntries(ctx context.Context) ([]JournalEntry, error)

	// ListLedgerEntries returns matching entries ordered by date, then Seq.
	ListLedgerEntries(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error)
}

// Tx exposes transactional operations. Writes are visible to later reads in the same Tx
// and to other readers only after commit.
type Tx interface {
	Reader

	InsertAccount(ctx context.Context, account Account) error
	InsertParty(ctx context.Context, party Party) error
	InsertItem(ctx context.Context, item Item) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	AccountReferenced(ctx context.Context, id uuid.UUID) (bool, error)

	VoucherNumberExists(ctx context.Context, voucherType VoucherType, number string) (bool, error)
	InsertVoucher(ctx context.Context, voucher Voucher) error
	InsertJournalEntry(ctx context.Context, entry JournalEntry) error
	// AppendLedgerEntries stores entries in order and assigns their Seq.
	AppendLedgerEntries(ctx context.Context, entries []LedgerEntry) ([]LedgerEntry, error)

	// AdjustAccountBalance atomically adds delta to current_balance.
	AdjustAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (Account, error)
	// AdjustItemStock atomically adds delta to current_stock.
	AdjustItemStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (Item, error)

	GetVoucherForUpdate(ctx context.Context, voucherType VoucherType, id uuid.UUID) (Voucher, error)
	UpdateVoucherPayment(ctx context.Context, id uuid.UUID, paid decimal.Decimal, status PaymentStatus) error
}

// Store is the persistence contract implemented by pgstore and memstore.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

// Snapshotter runs fn against one consistent, read-only view of the books.
// Postings committed while fn runs are not visible to it.
type Snapshotter interface {
	ReadSnapshot(ctx context.Context, fn func(context.Context, Reader) error) error
}
