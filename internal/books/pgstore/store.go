// Package pgstore persists the books in PostgreSQL through pgx.
package pgstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
)

// Store persists book entities.
type Store struct {
	reader
	pool *pgxpool.Pool
}

var (
	_ books.Store       = (*Store)(nil)
	_ books.Snapshotter = (*Store)(nil)
)

// New constructs Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{reader: reader{q: pool}, pool: pool}
}

// WithTx executes fn within a read-committed transaction. Balance updates are
// in-place increments, so read committed lets concurrent postings on the same
// row queue behind each other instead of failing serialization.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, books.Tx) error) error {
	if s == nil || s.pool == nil {
		return errors.New("pgstore: not initialised")
	}
	return db.WithTx(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{reader: reader{q: tx}, tx: tx})
	})
}

// ReadSnapshot runs fn inside a read-only repeatable-read transaction, so
// every query sees the same committed state.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(context.Context, books.Reader) error) error {
	if s == nil || s.pool == nil {
		return errors.New("pgstore: not initialised")
	}
	return db.WithTx(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return fn(ctx, reader{q: tx})
	})
}

type txRepository struct {
	reader
	tx pgx.Tx
}

func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func (r *txRepository) InsertAccount(ctx context.Context, a books.Account) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO accounts (id, code, name, account_group, account_type, opening_balance, current_balance, is_system)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, a.ID, a.Code, a.Name, a.Group, a.Type, a.OpeningBalance, a.CurrentBalance, a.IsSystem)
	if uniqueViolation(err, "uq_accounts_code") {
		return books.ErrDuplicateCode
	}
	return err
}

func (r *txRepository) InsertParty(ctx context.Context, p books.Party) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO parties (id, party_type, code, name, contact_person, phone, email, address, gstin, opening_balance, balance_type)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, p.ID, p.Type, p.Code, p.Name, p.ContactPerson, p.Phone, p.Email, p.Address, p.GSTIN, p.OpeningBalance, p.BalanceType)
	if uniqueViolation(err, "uq_parties_type_code") {
		return books.ErrDuplicateCode
	}
	return err
}

func (r *txRepository) InsertItem(ctx context.Context, it books.Item) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO items (id, code, name, category, unit, hsn_code, purchase_rate, sale_rate, gst_rate, opening_stock, current_stock, reorder_level)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`, it.ID, it.Code, it.Name, it.Category, it.Unit, it.HSNCode, it.PurchaseRate, it.SaleRate, it.GSTRate, it.OpeningStock, it.CurrentStock, it.ReorderLevel)
	if uniqueViolation(err, "uq_items_code") {
		return books.ErrDuplicateCode
	}
	return err
}

func (r *txRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return books.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) AccountReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var referenced bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id=$1)
OR EXISTS (SELECT 1 FROM vouchers WHERE account_id=$1 OR counter_account_id=$1)`, id).Scan(&referenced)
	return referenced, err
}

func (r *txRepository) VoucherNumberExists(ctx context.Context, voucherType books.VoucherType, number string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE voucher_type=$1 AND voucher_number=$2)`, voucherType, number).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertVoucher(ctx context.Context, v books.Voucher) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO vouchers (id, voucher_type, voucher_number, voucher_date, party_id, party_type, account_id, counter_account_id,
subtotal, tax_amount, discount, total_amount, paid_amount, payment_status, payment_mode, reference, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		v.ID, v.Type, v.Number, v.Date.Time(), v.PartyID, v.PartyType, v.AccountID, v.CounterAccountID,
		v.Subtotal, v.TaxAmount, v.Discount, v.Total, v.PaidAmount, v.PaymentStatus, v.PaymentMode, v.Reference, v.Notes, v.CreatedBy)
	if err != nil {
		if uniqueViolation(err, "uq_vouchers_type_number") {
			return books.ErrDuplicateVoucherNumber
		}
		return err
	}
	for idx, it := range v.Items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO voucher_items (voucher_id, line_no, item_id, item_name, quantity, rate, amount, tax_rate, tax_amount, total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, v.ID, idx+1, it.ItemID, it.ItemName, it.Quantity, it.Rate, it.Amount, it.TaxRate, it.TaxAmount, it.Total); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, je books.JournalEntry) error {
	if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entries (id, voucher_id, voucher_type, voucher_number, entry_date, narration)
VALUES ($1,$2,$3,$4,$5,$6)`, je.ID, je.VoucherID, je.VoucherType, je.VoucherNumber, je.Date.Time(), je.Narration); err != nil {
		return err
	}
	for idx, line := range je.Lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (journal_id, line_no, account_id, debit, credit, narration)
VALUES ($1,$2,$3,$4,$5,$6)`, je.ID, idx+1, line.AccountID, line.Debit, line.Credit, line.Narration); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) AppendLedgerEntries(ctx context.Context, entries []books.LedgerEntry) ([]books.LedgerEntry, error) {
	stored := make([]books.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		var accountID, partyID, itemID *uuid.UUID
		id := e.DimensionID
		switch e.Dimension {
		case books.DimensionAccount:
			accountID = &id
		case books.DimensionParty:
			partyID = &id
		case books.DimensionItem:
			itemID = &id
		default:
			return nil, errors.New("pgstore: ledger entry without dimension")
		}
		err := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (id, entry_date, account_id, party_id, item_id, voucher_id, voucher_type, voucher_number,
particulars, debit, credit, quantity_in, quantity_out)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING seq, created_at`,
			e.ID, e.Date.Time(), accountID, partyID, itemID, e.VoucherID, e.VoucherType, e.VoucherNumber,
			e.Particulars, e.Debit, e.Credit, e.QuantityIn, e.QuantityOut).Scan(&e.Seq, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		stored = append(stored, e)
	}
	return stored, nil
}

func (r *txRepository) AdjustAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (books.Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `UPDATE accounts SET current_balance = current_balance + $2 WHERE id=$1 RETURNING `+accountColumns, id, delta))
}

func (r *txRepository) AdjustItemStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (books.Item, error) {
	return scanItem(r.tx.QueryRow(ctx, `UPDATE items SET current_stock = current_stock + $2 WHERE id=$1 RETURNING `+itemColumns, id, delta))
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, voucherType books.VoucherType, id uuid.UUID) (books.Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 AND voucher_type=$2 FOR UPDATE`, id, voucherType))
	if err != nil {
		return books.Voucher{}, err
	}
	return r.attachDetails(ctx, v)
}

func (r *txRepository) UpdateVoucherPayment(ctx context.Context, id uuid.UUID, paid decimal.Decimal, status books.PaymentStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET paid_amount=$2, payment_status=$3 WHERE id=$1`, id, paid, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return books.ErrVoucherNotFound
	}
	return nil
}
