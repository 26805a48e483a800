package vouchers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// posting applies one voucher inside a transaction.
type posting struct {
	tx       books.Tx
	rule     rule
	voucher  books.Voucher
	now      time.Time
	negative bool

	party    books.Party
	accounts map[uuid.UUID]books.Account
	byCode   map[string]books.Account
}

func newPosting(tx books.Tx, r rule, v books.Voucher, now time.Time, allowNegative bool) *posting {
	return &posting{
		tx:       tx,
		rule:     r,
		voucher:  v,
		now:      now,
		negative: allowNegative,
		accounts: make(map[uuid.UUID]books.Account),
		byCode:   make(map[string]books.Account),
	}
}

func (p *posting) run(ctx context.Context) (PostedVoucher, error) {
	taken, err := p.tx.VoucherNumberExists(ctx, p.voucher.Type, p.voucher.Number)
	if err != nil {
		return PostedVoucher{}, err
	}
	if taken {
		return PostedVoucher{}, books.ErrDuplicateVoucherNumber
	}
	if err := p.resolve(ctx); err != nil {
		return PostedVoucher{}, err
	}
	lines, err := p.lines(ctx)
	if err != nil {
		return PostedVoucher{}, err
	}
	entry := books.JournalEntry{
		ID:            uuid.New(),
		VoucherID:     p.voucher.ID,
		VoucherType:   p.voucher.Type,
		VoucherNumber: p.voucher.Number,
		Date:          p.voucher.Date,
		Narration:     p.narration(),
		Lines:         lines,
		CreatedAt:     p.now,
	}
	if !entry.Balanced() {
		debit, credit := entry.Totals()
		return PostedVoucher{}, fmt.Errorf("vouchers: derived %s entry unbalanced: debit %s credit %s", p.voucher.Type, debit, credit)
	}

	if err := p.tx.InsertVoucher(ctx, p.voucher); err != nil {
		return PostedVoucher{}, err
	}
	if err := p.tx.InsertJournalEntry(ctx, entry); err != nil {
		return PostedVoucher{}, err
	}
	if err := p.applyBalances(ctx, lines); err != nil {
		return PostedVoucher{}, err
	}
	if err := p.applyStock(ctx); err != nil {
		return PostedVoucher{}, err
	}
	entries, err := p.tx.AppendLedgerEntries(ctx, p.ledgerEntries(lines))
	if err != nil {
		return PostedVoucher{}, err
	}
	return PostedVoucher{Voucher: p.voucher, JournalEntry: entry, LedgerEntries: entries}, nil
}

// resolve loads every referenced master. Items get their name snapshot.
func (p *posting) resolve(ctx context.Context) error {
	v := &p.voucher
	if v.PartyID != nil {
		party, err := p.tx.GetParty(ctx, *v.PartyID)
		if err != nil {
			return referenceErr(p.rule.partyField, *v.PartyID, err)
		}
		if p.rule.partyType != "" && party.Type != p.rule.partyType {
			return books.Unresolved(p.rule.partyField, party.ID, fmt.Errorf("party %s is a %s", party.Code, party.Type))
		}
		p.party = party
		v.PartyType = party.Type
	}
	if v.AccountID != nil {
		acc, err := p.account(ctx, p.rule.primaryField, *v.AccountID)
		if err != nil {
			return err
		}
		if len(p.rule.primaryTypes) > 0 && !slices.Contains(p.rule.primaryTypes, acc.Type) {
			return shared.Invalid(p.rule.primaryField, fmt.Sprintf("account %s is %s, expected %s", acc.Code, acc.Type, p.rule.primaryTypes[0]))
		}
	}
	if v.CounterAccountID != nil {
		if _, err := p.account(ctx, p.rule.counterField, *v.CounterAccountID); err != nil {
			return err
		}
	}
	for i := range v.Items {
		item, err := p.tx.GetItem(ctx, v.Items[i].ItemID)
		if err != nil {
			return referenceErr(fmt.Sprintf("items[%d].item_id", i), v.Items[i].ItemID, err)
		}
		v.Items[i].ItemName = item.Name
	}
	for i, line := range v.Lines {
		if _, err := p.account(ctx, fmt.Sprintf("lines[%d].account_id", i), line.AccountID); err != nil {
			return err
		}
	}
	return nil
}

func referenceErr(field string, id uuid.UUID, err error) error {
	if books.IsNotFound(err) {
		return books.Unresolved(field, id, err)
	}
	return err
}

func (p *posting) account(ctx context.Context, field string, id uuid.UUID) (books.Account, error) {
	if acc, ok := p.accounts[id]; ok {
		return acc, nil
	}
	acc, err := p.tx.GetAccount(ctx, id)
	if err != nil {
		return books.Account{}, referenceErr(field, id, err)
	}
	p.accounts[id] = acc
	return acc, nil
}

func (p *posting) systemAccount(ctx context.Context, code string) (books.Account, error) {
	if acc, ok := p.byCode[code]; ok {
		return acc, nil
	}
	acc, err := p.tx.AccountByCode(ctx, code)
	if errors.Is(err, books.ErrAccountNotFound) {
		return books.Account{}, systemAccountMissing(code)
	}
	if err != nil {
		return books.Account{}, err
	}
	p.byCode[code] = acc
	p.accounts[acc.ID] = acc
	return acc, nil
}

func (p *posting) selectAccount(ctx context.Context, sel selector) (books.Account, error) {
	switch sel.role {
	case partyControl:
		return p.systemAccount(ctx, books.ControlAccountCode(p.party.Type))
	case primaryAccount:
		return p.accounts[*p.voucher.AccountID], nil
	case counterAccount:
		return p.accounts[*p.voucher.CounterAccountID], nil
	default:
		return p.systemAccount(ctx, sel.code)
	}
}

func (p *posting) lines(ctx context.Context) ([]books.JournalLine, error) {
	if p.rule.explicit {
		return slices.Clone(p.voucher.Lines), nil
	}
	lines := make([]books.JournalLine, 0, len(p.rule.legs))
	for _, l := range p.rule.legs {
		amount := l.amount(&p.voucher)
		if l.optional && amount.IsZero() {
			continue
		}
		acc, err := p.selectAccount(ctx, l.account)
		if err != nil {
			return nil, err
		}
		line := books.JournalLine{AccountID: acc.ID, Debit: decimal.Zero, Credit: decimal.Zero, Narration: l.narration}
		if l.side == debit {
			line.Debit = amount
		} else {
			line.Credit = amount
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (p *posting) narration() string {
	if p.voucher.Notes != "" {
		return p.voucher.Notes
	}
	return fmt.Sprintf("%s %s", p.rule.particulars, p.voucher.Number)
}

func sortedIDs[V any](m map[uuid.UUID]V) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return ids
}

// applyBalances adds one aggregated delta per account, in id order.
func (p *posting) applyBalances(ctx context.Context, lines []books.JournalLine) error {
	deltas := make(map[uuid.UUID]decimal.Decimal, len(lines))
	for _, line := range lines {
		acc := p.accounts[line.AccountID]
		deltas[line.AccountID] = deltas[line.AccountID].Add(acc.Type.Delta(line.Debit, line.Credit))
	}
	for _, id := range sortedIDs(deltas) {
		if deltas[id].IsZero() {
			continue
		}
		if _, err := p.tx.AdjustAccountBalance(ctx, id, deltas[id]); err != nil {
			return fmt.Errorf("vouchers: adjust account %s: %w", id, err)
		}
	}
	return nil
}

func (p *posting) applyStock(ctx context.Context) error {
	if p.rule.stockSign == 0 || len(p.voucher.Items) == 0 {
		return nil
	}
	sign := decimal.NewFromInt(int64(p.rule.stockSign))
	deltas := make(map[uuid.UUID]decimal.Decimal, len(p.voucher.Items))
	for _, line := range p.voucher.Items {
		deltas[line.ItemID] = deltas[line.ItemID].Add(line.Quantity.Mul(sign))
	}
	for _, id := range sortedIDs(deltas) {
		item, err := p.tx.AdjustItemStock(ctx, id, deltas[id])
		if err != nil {
			return fmt.Errorf("vouchers: adjust stock %s: %w", id, err)
		}
		if !p.negative && deltas[id].IsNegative() && item.CurrentStock.IsNegative() {
			return fmt.Errorf("%w: %s would fall to %s", books.ErrInsufficientStock, item.Code, item.CurrentStock.String())
		}
	}
	return nil
}

func (p *posting) ledgerEntries(lines []books.JournalLine) []books.LedgerEntry {
	v := p.voucher
	base := func(dim books.Dimension, id uuid.UUID, particulars string) books.LedgerEntry {
		return books.LedgerEntry{
			ID:            uuid.New(),
			Date:          v.Date,
			Dimension:     dim,
			DimensionID:   id,
			VoucherID:     v.ID,
			VoucherType:   v.Type,
			VoucherNumber: v.Number,
			Particulars:   particulars,
			Debit:         decimal.Zero,
			Credit:        decimal.Zero,
			QuantityIn:    decimal.Zero,
			QuantityOut:   decimal.Zero,
			CreatedAt:     p.now,
		}
	}

	entries := make([]books.LedgerEntry, 0, len(lines)+len(v.Items)+1)
	for _, line := range lines {
		particulars := line.Narration
		if particulars == "" {
			particulars = p.rule.particulars
		}
		e := base(books.DimensionAccount, line.AccountID, particulars)
		e.Debit, e.Credit = line.Debit, line.Credit
		entries = append(entries, e)
	}
	if p.rule.hasParty() {
		e := base(books.DimensionParty, p.party.ID, p.rule.particulars)
		if *p.rule.partySide == debit {
			e.Debit = v.Total
		} else {
			e.Credit = v.Total
		}
		entries = append(entries, e)
	}
	for _, line := range v.Items {
		e := base(books.DimensionItem, line.ItemID, fmt.Sprintf("%s: %s", p.rule.particulars, line.ItemName))
		if p.rule.stockSign > 0 {
			e.QuantityIn = line.Quantity
		} else {
			e.QuantityOut = line.Quantity
		}
		entries = append(entries, e)
	}
	return entries
}
