// Package memstore is an in-process books.Store. Transactions work on a private
// copy of the state and publish it on commit, so readers always see committed data.
package memstore

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
)

type state struct {
	accounts map[uuid.UUID]books.Account
	parties  map[uuid.UUID]books.Party
	items    map[uuid.UUID]books.Item
	vouchers map[uuid.UUID]books.Voucher
	order    []uuid.UUID
	journals []books.JournalEntry
	ledger   []books.LedgerEntry
	seq      int64
}

func newState() *state {
	return &state{
		accounts: make(map[uuid.UUID]books.Account),
		parties:  make(map[uuid.UUID]books.Party),
		items:    make(map[uuid.UUID]books.Item),
		vouchers: make(map[uuid.UUID]books.Voucher),
	}
}

// clone copies the maps; slices are capped so appends never write into shared arrays.
func (s *state) clone() *state {
	return &state{
		accounts: maps.Clone(s.accounts),
		parties:  maps.Clone(s.parties),
		items:    maps.Clone(s.items),
		vouchers: maps.Clone(s.vouchers),
		order:    s.order[:len(s.order):len(s.order)],
		journals: s.journals[:len(s.journals):len(s.journals)],
		ledger:   s.ledger[:len(s.ledger):len(s.ledger)],
		seq:      s.seq,
	}
}

// Store is a concurrency-safe in-memory books.Store.
type Store struct {
	mu      sync.RWMutex
	current *state
	writeMu sync.Mutex
	now     func() time.Time
}

var (
	_ books.Store       = (*Store)(nil)
	_ books.Snapshotter = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{current: newState(), now: time.Now}
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// WithTx runs fn against a private copy of the state and publishes it when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, books.Tx) error) error {
	if s == nil {
		return errors.New("memstore: not initialised")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.snapshot().clone()
	if err := fn(ctx, &tx{reader: reader{st: work}, now: s.now}); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = work
	s.mu.Unlock()
	return nil
}

// ReadSnapshot runs fn against the state committed when it was called.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(context.Context, books.Reader) error) error {
	if s == nil {
		return errors.New("memstore: not initialised")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, reader{st: s.snapshot()})
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (books.Account, error) {
	return reader{st: s.snapshot()}.GetAccount(ctx, id)
}

func (s *Store) AccountByCode(ctx context.Context, code string) (books.Account, error) {
	return reader{st: s.snapshot()}.AccountByCode(ctx, code)
}

func (s *Store) ListAccounts(ctx context.Context) ([]books.Account, error) {
	return reader{st: s.snapshot()}.ListAccounts(ctx)
}

func (s *Store) GetParty(ctx context.Context, id uuid.UUID) (books.Party, error) {
	return reader{st: s.snapshot()}.GetParty(ctx, id)
}

func (s *Store) PartyByCode(ctx context.Context, partyType books.PartyType, code string) (books.Party, error) {
	return reader{st: s.snapshot()}.PartyByCode(ctx, partyType, code)
}

func (s *Store) ListParties(ctx context.Context, partyType books.PartyType) ([]books.Party, error) {
	return reader{st: s.snapshot()}.ListParties(ctx, partyType)
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (books.Item, error) {
	return reader{st: s.snapshot()}.GetItem(ctx, id)
}

func (s *Store) ItemByCode(ctx context.Context, code string) (books.Item, error) {
	return reader{st: s.snapshot()}.ItemByCode(ctx, code)
}

func (s *Store) ListItems(ctx context.Context) ([]books.Item, error) {
	return reader{st: s.snapshot()}.ListItems(ctx)
}

func (s *Store) GetVoucher(ctx context.Context, voucherType books.VoucherType, id uuid.UUID) (books.Voucher, error) {
	return reader{st: s.snapshot()}.GetVoucher(ctx, voucherType, id)
}

func (s *Store) ListVouchers(ctx context.Context, filter books.VoucherFilter) ([]books.Voucher, error) {
	return reader{st: s.snapshot()}.ListVouchers(ctx, filter)
}

func (s *Store) JournalForVoucher(ctx context.Context, voucherID uuid.UUID) (books.JournalEntry, error) {
	return reader{st: s.snapshot()}.JournalForVoucher(ctx, voucherID)
}

func (s *Store) ListJournalEntries(ctx context.Context) ([]books.JournalEntry, error) {
	return reader{st: s.snapshot()}.ListJournalEntries(ctx)
}

func (s *Store) ListLedgerEntries(ctx context.Context, filter books.LedgerFilter) ([]books.LedgerEntry, error) {
	return reader{st: s.snapshot()}.ListLedgerEntries(ctx, filter)
}

// ForceAccountBalance overwrites a stored balance without a posting. Integrity tests use it to inject drift.
func (s *Store) ForceAccountBalance(id uuid.UUID, balance decimal.Decimal) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	work := s.snapshot().clone()
	if acc, ok := work.accounts[id]; ok {
		acc.CurrentBalance = balance
		work.accounts[id] = acc
	}
	s.mu.Lock()
	s.current = work
	s.mu.Unlock()
}

type reader struct {
	st *state
}

func (r reader) GetAccount(_ context.Context, id uuid.UUID) (books.Account, error) {
	acc, ok := r.st.accounts[id]
	if !ok {
		return books.Account{}, books.ErrAccountNotFound
	}
	return acc, nil
}

func (r reader) AccountByCode(_ context.Context, code string) (books.Account, error) {
	for _, acc := range r.st.accounts {
		if strings.EqualFold(acc.Code, code) {
			return acc, nil
		}
	}
	return books.Account{}, books.ErrAccountNotFound
}

func (r reader) ListAccounts(context.Context) ([]books.Account, error) {
	out := make([]books.Account, 0, len(r.st.accounts))
	for _, acc := range r.st.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r reader) GetParty(_ context.Context, id uuid.UUID) (books.Party, error) {
	p, ok := r.st.parties[id]
	if !ok {
		return books.Party{}, books.ErrPartyNotFound
	}
	return p, nil
}

func (r reader) PartyByCode(_ context.Context, partyType books.PartyType, code string) (books.Party, error) {
	for _, p := range r.st.parties {
		if p.Type == partyType && strings.EqualFold(p.Code, code) {
			return p, nil
		}
	}
	return books.Party{}, books.ErrPartyNotFound
}

func (r reader) ListParties(_ context.Context, partyType books.PartyType) ([]books.Party, error) {
	out := make([]books.Party, 0, len(r.st.parties))
	for _, p := range r.st.parties {
		if partyType != "" && p.Type != partyType {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (r reader) GetItem(_ context.Context, id uuid.UUID) (books.Item, error) {
	it, ok := r.st.items[id]
	if !ok {
		return books.Item{}, books.ErrItemNotFound
	}
	return it, nil
}

func (r reader) ItemByCode(_ context.Context, code string) (books.Item, error) {
	for _, it := range r.st.items {
		if strings.EqualFold(it.Code, code) {
			return it, nil
		}
	}
	return books.Item{}, books.ErrItemNotFound
}

func (r reader) ListItems(context.Context) ([]books.Item, error) {
	out := make([]books.Item, 0, len(r.st.items))
	for _, it := range r.st.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r reader) GetVoucher(_ context.Context, voucherType books.VoucherType, id uuid.UUID) (books.Voucher, error) {
	v, ok := r.st.vouchers[id]
	if !ok || (voucherType != "" && v.Type != voucherType) {
		return books.Voucher{}, books.ErrVoucherNotFound
	}
	return v, nil
}

func (r reader) ListVouchers(_ context.Context, filter books.VoucherFilter) ([]books.Voucher, error) {
	out := make([]books.Voucher, 0)
	for _, id := range r.st.order {
		v := r.st.vouchers[id]
		if filter.Type != "" && v.Type != filter.Type {
			continue
		}
		if filter.PartyID != uuid.Nil && (v.PartyID == nil || *v.PartyID != filter.PartyID) {
			continue
		}
		if !filter.Range.Contains(v.Date) {
			continue
		}
		if filter.HeadersOnly {
			v.Items, v.Lines = nil, nil
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r reader) JournalForVoucher(_ context.Context, voucherID uuid.UUID) (books.JournalEntry, error) {
	for _, je := range r.st.journals {
		if je.VoucherID == voucherID {
			return je, nil
		}
	}
	return books.JournalEntry{}, books.ErrJournalNotFound
}

func (r reader) ListJournalEntries(context.Context) ([]books.JournalEntry, error) {
	return append([]books.JournalEntry(nil), r.st.journals...), nil
}

func (r reader) ListLedgerEntries(_ context.Context, filter books.LedgerFilter) ([]books.LedgerEntry, error) {
	out := make([]books.LedgerEntry, 0)
	for _, e := range r.st.ledger {
		if filter.Dimension != "" && e.Dimension != filter.Dimension {
			continue
		}
		if filter.ID != uuid.Nil && e.DimensionID != filter.ID {
			continue
		}
		if !filter.Range.Contains(e.Date) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

type tx struct {
	reader
	now func() time.Time
}

func (t *tx) InsertAccount(_ context.Context, account books.Account) error {
	for _, existing := range t.st.accounts {
		if strings.EqualFold(existing.Code, account.Code) {
			return books.ErrDuplicateCode
		}
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = t.now()
	}
	t.st.accounts[account.ID] = account
	return nil
}

func (t *tx) InsertParty(_ context.Context, party books.Party) error {
	for _, existing := range t.st.parties {
		if existing.Type == party.Type && strings.EqualFold(existing.Code, party.Code) {
			return books.ErrDuplicateCode
		}
	}
	if party.CreatedAt.IsZero() {
		party.CreatedAt = t.now()
	}
	t.st.parties[party.ID] = party
	return nil
}

func (t *tx) InsertItem(_ context.Context, item books.Item) error {
	for _, existing := range t.st.items {
		if strings.EqualFold(existing.Code, item.Code) {
			return books.ErrDuplicateCode
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = t.now()
	}
	t.st.items[item.ID] = item
	return nil
}

func (t *tx) DeleteAccount(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.accounts[id]; !ok {
		return books.ErrAccountNotFound
	}
	delete(t.st.accounts, id)
	return nil
}

func (t *tx) AccountReferenced(_ context.Context, id uuid.UUID) (bool, error) {
	for _, je := range t.st.journals {
		for _, line := range je.Lines {
			if line.AccountID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *tx) VoucherNumberExists(_ context.Context, voucherType books.VoucherType, number string) (bool, error) {
	for _, v := range t.st.vouchers {
		if v.Type == voucherType && v.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) InsertVoucher(ctx context.Context, voucher books.Voucher) error {
	exists, err := t.VoucherNumberExists(ctx, voucher.Type, voucher.Number)
	if err != nil {
		return err
	}
	if exists {
		return books.ErrDuplicateVoucherNumber
	}
	if voucher.CreatedAt.IsZero() {
		voucher.CreatedAt = t.now()
	}
	t.st.vouchers[voucher.ID] = voucher
	t.st.order = append(t.st.order, voucher.ID)
	return nil
}

func (t *tx) InsertJournalEntry(_ context.Context, entry books.JournalEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.now()
	}
	entry.Lines = append([]books.JournalLine(nil), entry.Lines...)
	t.st.journals = append(t.st.journals, entry)
	return nil
}

func (t *tx) AppendLedgerEntries(_ context.Context, entries []books.LedgerEntry) ([]books.LedgerEntry, error) {
	stored := make([]books.LedgerEntry, len(entries))
	for i, e := range entries {
		t.st.seq++
		e.Seq = t.st.seq
		if e.CreatedAt.IsZero() {
			e.CreatedAt = t.now()
		}
		stored[i] = e
	}
	t.st.ledger = append(t.st.ledger, stored...)
	return stored, nil
}

func (t *tx) AdjustAccountBalance(_ context.Context, id uuid.UUID, delta decimal.Decimal) (books.Account, error) {
	acc, ok := t.st.accounts[id]
	if !ok {
		return books.Account{}, books.ErrAccountNotFound
	}
	acc.CurrentBalance = acc.CurrentBalance.Add(delta)
	t.st.accounts[id] = acc
	return acc, nil
}

func (t *tx) AdjustItemStock(_ context.Context, id uuid.UUID, delta decimal.Decimal) (books.Item, error) {
	it, ok := t.st.items[id]
	if !ok {
		return books.Item{}, books.ErrItemNotFound
	}
	it.CurrentStock = it.CurrentStock.Add(delta)
	t.st.items[id] = it
	return it, nil
}

func (t *tx) GetVoucherForUpdate(ctx context.Context, voucherType books.VoucherType, id uuid.UUID) (books.Voucher, error) {
	return t.GetVoucher(ctx, voucherType, id)
}

func (t *tx) UpdateVoucherPayment(_ context.Context, id uuid.UUID, paid decimal.Decimal, status books.PaymentStatus) error {
	v, ok := t.st.vouchers[id]
	if !ok {
		return books.ErrVoucherNotFound
	}
	v.PaidAmount = paid
	v.PaymentStatus = status
	t.st.vouchers[id] = v
	return nil
}
