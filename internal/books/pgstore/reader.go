package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type reader struct {
	q querier
}

const accountColumns = `id, code, name, account_group, account_type, opening_balance, current_balance, is_system, created_at`

func scanAccount(row pgx.Row) (books.Account, error) {
	var a books.Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Group, &a.Type, &a.OpeningBalance, &a.CurrentBalance, &a.IsSystem, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.Account{}, books.ErrAccountNotFound
	}
	return a, err
}

func (r reader) GetAccount(ctx context.Context, id uuid.UUID) (books.Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

func (r reader) AccountByCode(ctx context.Context, code string) (books.Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(code)=lower($1)`, code))
}

func (r reader) ListAccounts(ctx context.Context) ([]books.Account, error) {
	rows, err := r.q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := []books.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

const partyColumns = `id, party_type, code, name, contact_person, phone, email, address, gstin, opening_balance, balance_type, created_at`

func scanParty(row pgx.Row) (books.Party, error) {
	var p books.Party
	err := row.Scan(&p.ID, &p.Type, &p.Code, &p.Name, &p.ContactPerson, &p.Phone, &p.Email, &p.Address, &p.GSTIN, &p.OpeningBalance, &p.BalanceType, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.Party{}, books.ErrPartyNotFound
	}
	return p, err
}

func (r reader) GetParty(ctx context.Context, id uuid.UUID) (books.Party, error) {
	return scanParty(r.q.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE id=$1`, id))
}

func (r reader) PartyByCode(ctx context.Context, partyType books.PartyType, code string) (books.Party, error) {
	return scanParty(r.q.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE party_type=$1 AND lower(code)=lower($2)`, partyType, code))
}

func (r reader) ListParties(ctx context.Context, partyType books.PartyType) ([]books.Party, error) {
	rows, err := r.q.Query(ctx, `SELECT `+partyColumns+` FROM parties WHERE ($1 = '' OR party_type = $1) ORDER BY party_type, code`, string(partyType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	parties := []books.Party{}
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

const itemColumns = `id, code, name, category, unit, hsn_code, purchase_rate, sale_rate, gst_rate, opening_stock, current_stock, reorder_level, created_at`

func scanItem(row pgx.Row) (books.Item, error) {
	var it books.Item
	err := row.Scan(&it.ID, &it.Code, &it.Name, &it.Category, &it.Unit, &it.HSNCode, &it.PurchaseRate, &it.SaleRate, &it.GSTRate, &it.OpeningStock, &it.CurrentStock, &it.ReorderLevel, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.Item{}, books.ErrItemNotFound
	}
	return it, err
}

func (r reader) GetItem(ctx context.Context, id uuid.UUID) (books.Item, error) {
	return scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1`, id))
}

func (r reader) ItemByCode(ctx context.Context, code string) (books.Item, error) {
	return scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE lower(code)=lower($1)`, code))
}

func (r reader) ListItems(ctx context.Context) ([]books.Item, error) {
	rows, err := r.q.Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []books.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const voucherColumns = `id, voucher_type, voucher_number, voucher_date, party_id, party_type, account_id, counter_account_id,
subtotal, tax_amount, discount, total_amount, paid_amount, payment_status, payment_mode, reference, notes, created_by, created_at`

func scanVoucher(row pgx.Row) (books.Voucher, error) {
	var (
		v    books.Voucher
		date time.Time
	)
	err := row.Scan(&v.ID, &v.Type, &v.Number, &date, &v.PartyID, &v.PartyType, &v.AccountID, &v.CounterAccountID,
		&v.Subtotal, &v.TaxAmount, &v.Discount, &v.Total, &v.PaidAmount, &v.PaymentStatus, &v.PaymentMode, &v.Reference, &v.Notes, &v.CreatedBy, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.Voucher{}, books.ErrVoucherNotFound
	}
	v.Date = shared.DateOf(date)
	return v, err
}

func (r reader) GetVoucher(ctx context.Context, voucherType books.VoucherType, id uuid.UUID) (books.Voucher, error) {
	v, err := scanVoucher(r.q.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 AND ($2 = '' OR voucher_type=$2)`, id, string(voucherType)))
	if err != nil {
		return books.Voucher{}, err
	}
	return r.attachDetails(ctx, v)
}

func (r reader) attachDetails(ctx context.Context, v books.Voucher) (books.Voucher, error) {
	if v.Type.Invoiced() {
		items, err := r.voucherItems(ctx, v.ID)
		if err != nil {
			return books.Voucher{}, err
		}
		v.Items = items
	}
	if v.Type == books.VoucherJournal {
		je, err := r.JournalForVoucher(ctx, v.ID)
		if err != nil && !errors.Is(err, books.ErrJournalNotFound) {
			return books.Voucher{}, err
		}
		v.Lines = je.Lines
	}
	return v, nil
}

func (r reader) voucherItems(ctx context.Context, voucherID uuid.UUID) ([]books.VoucherItem, error) {
	rows, err := r.q.Query(ctx, `SELECT item_id, item_name, quantity, rate, amount, tax_rate, tax_amount, total
FROM voucher_items WHERE voucher_id=$1 ORDER BY line_no`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []books.VoucherItem
	for rows.Next() {
		var it books.VoucherItem
		if err := rows.Scan(&it.ItemID, &it.ItemName, &it.Quantity, &it.Rate, &it.Amount, &it.TaxRate, &it.TaxAmount, &it.Total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r reader) ListVouchers(ctx context.Context, filter books.VoucherFilter) ([]books.Voucher, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Type != "" {
		add("voucher_type = $%d", string(filter.Type))
	}
	if filter.PartyID != uuid.Nil {
		add("party_id = $%d", filter.PartyID)
	}
	if !filter.Range.From.IsZero() {
		add("voucher_date >= $%d", filter.Range.From.Time())
	}
	if !filter.Range.To.IsZero() {
		add("voucher_date <= $%d", filter.Range.To.Time())
	}
	sql := `SELECT ` + voucherColumns + ` FROM vouchers`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY voucher_date, seq`
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	vouchers := []books.Voucher{}
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.HeadersOnly {
		return vouchers, nil
	}
	for i := range vouchers {
		if vouchers[i], err = r.attachDetails(ctx, vouchers[i]); err != nil {
			return nil, err
		}
	}
	return vouchers, nil
}

func (r reader) JournalForVoucher(ctx context.Context, voucherID uuid.UUID) (books.JournalEntry, error) {
	var (
		je   books.JournalEntry
		date time.Time
	)
	err := r.q.QueryRow(ctx, `SELECT id, voucher_id, voucher_type, voucher_number, entry_date, narration, created_at
FROM journal_entries WHERE voucher_id=$1`, voucherID).
		Scan(&je.ID, &je.VoucherID, &je.VoucherType, &je.VoucherNumber, &date, &je.Narration, &je.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return books.JournalEntry{}, books.ErrJournalNotFound
		}
		return books.JournalEntry{}, err
	}
	je.Date = shared.DateOf(date)
	lines, err := r.journalLines(ctx, je.ID)
	if err != nil {
		return books.JournalEntry{}, err
	}
	je.Lines = lines
	return je, nil
}

func (r reader) journalLines(ctx context.Context, journalID uuid.UUID) ([]books.JournalLine, error) {
	rows, err := r.q.Query(ctx, `SELECT account_id, debit, credit, narration FROM journal_lines WHERE journal_id=$1 ORDER BY line_no`, journalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []books.JournalLine
	for rows.Next() {
		var line books.JournalLine
		if err := rows.Scan(&line.AccountID, &line.Debit, &line.Credit, &line.Narration); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r reader) ListJournalEntries(ctx context.Context) ([]books.JournalEntry, error) {
	rows, err := r.q.Query(ctx, `SELECT je.id, je.voucher_id, je.voucher_type, je.voucher_number, je.entry_date, je.narration, je.created_at,
jl.account_id, jl.debit, jl.credit, jl.narration
FROM journal_entries je JOIN journal_lines jl ON jl.journal_id = je.id
ORDER BY je.entry_date, je.created_at, je.id, jl.line_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []books.JournalEntry{}
	for rows.Next() {
		var (
			je   books.JournalEntry
			line books.JournalLine
			date time.Time
		)
		if err := rows.Scan(&je.ID, &je.VoucherID, &je.VoucherType, &je.VoucherNumber, &date, &je.Narration, &je.CreatedAt,
			&line.AccountID, &line.Debit, &line.Credit, &line.Narration); err != nil {
			return nil, err
		}
		if n := len(entries); n > 0 && entries[n-1].ID == je.ID {
			entries[n-1].Lines = append(entries[n-1].Lines, line)
			continue
		}
		je.Date = shared.DateOf(date)
		je.Lines = []books.JournalLine{line}
		entries = append(entries, je)
	}
	return entries, rows.Err()
}

func (r reader) ListLedgerEntries(ctx context.Context, filter books.LedgerFilter) ([]books.LedgerEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	switch filter.Dimension {
	case books.DimensionAccount:
		where = append(where, "account_id IS NOT NULL")
		if filter.ID != uuid.Nil {
			add("account_id = $%d", filter.ID)
		}
	case books.DimensionParty:
		where = append(where, "party_id IS NOT NULL")
		if filter.ID != uuid.Nil {
			add("party_id = $%d", filter.ID)
		}
	case books.DimensionItem:
		where = append(where, "item_id IS NOT NULL")
		if filter.ID != uuid.Nil {
			add("item_id = $%d", filter.ID)
		}
	}
	if !filter.Range.From.IsZero() {
		add("entry_date >= $%d", filter.Range.From.Time())
	}
	if !filter.Range.To.IsZero() {
		add("entry_date <= $%d", filter.Range.To.Time())
	}
	sql := `SELECT seq, id, entry_date, account_id, party_id, item_id, voucher_id, voucher_type, voucher_number, particulars,
debit, credit, quantity_in, quantity_out, created_at FROM ledger_entries`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY entry_date, seq`
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []books.LedgerEntry{}
	for rows.Next() {
		var (
			e                          books.LedgerEntry
			date                       time.Time
			accountID, partyID, itemID *uuid.UUID
		)
		if err := rows.Scan(&e.Seq, &e.ID, &date, &accountID, &partyID, &itemID, &e.VoucherID, &e.VoucherType, &e.VoucherNumber, &e.Particulars,
			&e.Debit, &e.Credit, &e.QuantityIn, &e.QuantityOut, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Date = shared.DateOf(date)
		switch {
		case accountID != nil:
			e.Dimension, e.DimensionID = books.DimensionAccount, *accountID
		case partyID != nil:
			e.Dimension, e.DimensionID = books.DimensionParty, *partyID
		case itemID != nil:
			e.Dimension, e.DimensionID = books.DimensionItem, *itemID
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
