// Package ledger folds append-only ledger entries into running balances at read time.
package ledger

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Header describes the master a ledger belongs to.
type Header struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
	Type string    `json:"type"`
}

// Row is a ledger entry with its running balance.
type Row struct {
	books.LedgerEntry
	Balance decimal.Decimal `json:"balance"`
}

// View is a folded ledger for one account, party or item.
type View struct {
	Dimension      books.Dimension `json:"dimension"`
	Header         Header          `json:"header"`
	From           shared.Date     `json:"from_date"`
	To             shared.Date     `json:"to_date"`
	Entries        []Row           `json:"entries"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	TotalIn        decimal.Decimal `json:"total_in"`
	TotalOut       decimal.Decimal `json:"total_out"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// Service answers ledger queries.
type Service struct {
	store  books.Reader
	logger *slog.Logger
}

// NewService constructs the ledger service.
func NewService(store books.Reader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Query returns the entries of one master inside rng, oldest first, with
// running balances. Money ledgers fold debit minus credit, the item ledger
// folds quantity in minus quantity out.
func (s *Service) Query(ctx context.Context, dim books.Dimension, id uuid.UUID, rng shared.DateRange) (View, error) {
	if !dim.Valid() {
		return View{}, shared.Invalid("dimension", "must be account, party or item")
	}
	if err := rng.Validate(); err != nil {
		return View{}, err
	}
	header, err := s.header(ctx, dim, id)
	if err != nil {
		return View{}, err
	}
	entries, err := s.store.ListLedgerEntries(ctx, books.LedgerFilter{Dimension: dim, ID: id, Range: rng})
	if err != nil {
		return View{}, err
	}
	view := Fold(dim, entries)
	view.Header = header
	view.From, view.To = rng.From, rng.To
	return view, nil
}

func (s *Service) header(ctx context.Context, dim books.Dimension, id uuid.UUID) (Header, error) {
	switch dim {
	case books.DimensionAccount:
		acc, err := s.store.GetAccount(ctx, id)
		if err != nil {
			return Header{}, err
		}
		return Header{ID: acc.ID, Code: acc.Code, Name: acc.Name, Type: string(acc.Type)}, nil
	case books.DimensionParty:
		party, err := s.store.GetParty(ctx, id)
		if err != nil {
			return Header{}, err
		}
		return Header{ID: party.ID, Code: party.Code, Name: party.Name, Type: string(party.Type)}, nil
	default:
		item, err := s.store.GetItem(ctx, id)
		if err != nil {
			return Header{}, err
		}
		return Header{ID: item.ID, Code: item.Code, Name: item.Name, Type: item.Unit}, nil
	}
}

// Fold sorts entries by date then posting sequence and accumulates the running balance.
// The input slice is not modified.
func Fold(dim books.Dimension, entries []books.LedgerEntry) View {
	sorted := make([]books.LedgerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Date.Compare(sorted[j].Date); c != 0 {
			return c < 0
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	view := View{
		Dimension:      dim,
		Entries:        make([]Row, 0, len(sorted)),
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
		TotalIn:        decimal.Zero,
		TotalOut:       decimal.Zero,
		ClosingBalance: decimal.Zero,
	}
	balance := decimal.Zero
	for _, e := range sorted {
		balance = balance.Add(e.Movement())
		view.Entries = append(view.Entries, Row{LedgerEntry: e, Balance: balance})
		view.TotalDebit = view.TotalDebit.Add(e.Debit)
		view.TotalCredit = view.TotalCredit.Add(e.Credit)
		view.TotalIn = view.TotalIn.Add(e.QuantityIn)
		view.TotalOut = view.TotalOut.Add(e.QuantityOut)
	}
	view.ClosingBalance = balance
	return view
}
