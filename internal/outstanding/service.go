package outstanding

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/odyssey-books/internal/books"
)

// Service computes receivables and payables from committed vouchers.
type Service struct {
	store  books.Reader
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(store books.Reader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Receivables lists customers that still owe money.
func (s *Service) Receivables(ctx context.Context) (Report, error) {
	return s.report(ctx, books.PartyCustomer)
}

// Payables lists suppliers that are still owed money.
func (s *Service) Payables(ctx context.Context) (Report, error) {
	return s.report(ctx, books.PartySupplier)
}

func (s *Service) report(ctx context.Context, partyType books.PartyType) (Report, error) {
	parties, err := s.store.ListParties(ctx, partyType)
	if err != nil {
		return Report{}, err
	}
	f := flowsFor(partyType)
	invoices, err := s.store.ListVouchers(ctx, books.VoucherFilter{Type: f.invoice, HeadersOnly: true})
	if err != nil {
		return Report{}, err
	}
	settlements, err := s.store.ListVouchers(ctx, books.VoucherFilter{Type: f.settlement, HeadersOnly: true})
	if err != nil {
		return Report{}, err
	}
	r := Build(partyType, parties, append(invoices, settlements...))
	s.logger.DebugContext(ctx, "outstanding computed",
		slog.String("party_type", string(partyType)),
		slog.Int("parties", len(r.Parties)),
		slog.String("total", r.TotalOutstanding.String()))
	return r, nil
}
