package vouchers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator drops cached reports after a posting.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// PostingRecorder observes posting outcomes.
type PostingRecorder interface {
	ObservePosting(voucherType, outcome string, elapsed time.Duration)
}

// Posting outcomes reported to the recorder.
const (
	OutcomePosted   = "posted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// PostedVoucher is everything one posting wrote.
type PostedVoucher struct {
	Voucher       books.Voucher       `json:"voucher"`
	JournalEntry  books.JournalEntry  `json:"journal_entry"`
	LedgerEntries []books.LedgerEntry `json:"ledger_entries"`
}

// VoucherDetail is a voucher with its journal entry.
type VoucherDetail struct {
	Voucher      books.Voucher      `json:"voucher"`
	JournalEntry books.JournalEntry `json:"journal_entry"`
}

// Service posts vouchers and records payments against them.
type Service struct {
	store         books.Store
	audit         AuditPort
	cache         Invalidator
	metrics       PostingRecorder
	logger        *slog.Logger
	now           func() time.Time
	allowNegative bool
}

// NewService constructs the posting service. audit and cache may be nil.
// Negative stock is allowed until AllowNegativeStock(false) is called.
func NewService(store books.Store, audit AuditPort, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, cache: cache, logger: logger, now: time.Now, allowNegative: true}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches a posting recorder.
func (s *Service) WithMetrics(m PostingRecorder) {
	s.metrics = m
}

// AllowNegativeStock toggles whether sales may drive stock below zero.
func (s *Service) AllowNegativeStock(allow bool) {
	s.allowNegative = allow
}

// Post validates req and writes the voucher, its journal entry, ledger entries
// and balance changes in one transaction.
func (s *Service) Post(ctx context.Context, req Request) (PostedVoucher, error) {
	started := time.Now()
	posted, err := s.post(ctx, req)
	s.observe(string(req.Type), started, err)
	if err != nil {
		if !shared.IsClientError(err) {
			s.logger.ErrorContext(ctx, "voucher posting failed",
				slog.String("voucher_type", string(req.Type)),
				slog.String("voucher_number", req.Number),
				slog.Any("error", err))
		}
		return PostedVoucher{}, err
	}

	v := posted.Voucher
	s.afterWrite(ctx, "voucher.post", v.ID, map[string]any{
		"voucher_type":   v.Type,
		"voucher_number": v.Number,
		"total_amount":   v.Total.StringFixed(2),
	})
	s.logger.InfoContext(ctx, "voucher posted",
		slog.String("voucher_type", string(v.Type)),
		slog.String("voucher_number", v.Number),
		slog.String("total_amount", v.Total.StringFixed(2)),
		slog.Int("journal_lines", len(posted.JournalEntry.Lines)))
	return posted, nil
}

func (s *Service) post(ctx context.Context, req Request) (PostedVoucher, error) {
	v, r, err := req.draft()
	if err != nil {
		return PostedVoucher{}, err
	}
	now := s.now()
	v.ID = uuid.New()
	v.CreatedBy = shared.SubjectFromContext(ctx)
	v.CreatedAt = now

	var posted PostedVoucher
	err = s.store.WithTx(ctx, func(ctx context.Context, tx books.Tx) error {
		var err error
		posted, err = newPosting(tx, r, v, now, s.allowNegative).run(ctx)
		return err
	})
	return posted, err
}

func (s *Service) observe(voucherType string, started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := OutcomePosted
	switch {
	case err == nil:
	case shared.IsClientError(err):
		outcome = OutcomeRejected
	default:
		outcome = OutcomeFailed
	}
	s.metrics.ObservePosting(voucherType, outcome, time.Since(started))
}

// Get returns a voucher of voucherType with its journal entry.
func (s *Service) Get(ctx context.Context, voucherType books.VoucherType, id uuid.UUID) (VoucherDetail, error) {
	if !voucherType.Valid() {
		return VoucherDetail{}, shared.Invalid("voucher_type", "unknown voucher type")
	}
	v, err := s.store.GetVoucher(ctx, voucherType, id)
	if err != nil {
		return VoucherDetail{}, err
	}
	entry, err := s.store.JournalForVoucher(ctx, id)
	if err != nil {
		return VoucherDetail{}, err
	}
	return VoucherDetail{Voucher: v, JournalEntry: entry}, nil
}

// List returns vouchers of voucherType inside rng, by date then posting order.
func (s *Service) List(ctx context.Context, voucherType books.VoucherType, rng shared.DateRange) ([]books.Voucher, error) {
	if !voucherType.Valid() {
		return nil, shared.Invalid("voucher_type", "unknown voucher type")
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListVouchers(ctx, books.VoucherFilter{Type: voucherType, Range: rng})
}

// RecordPayment adds amount to a sales or purchase voucher's paid amount and
// moves its status forward. Overpayment is accepted and reported as paid.
func (s *Service) RecordPayment(ctx context.Context, voucherType books.VoucherType, id uuid.UUID, amount decimal.Decimal) (books.Voucher, error) {
	if !voucherType.Invoiced() {
		return books.Voucher{}, ErrNotInvoiced
	}
	amount = shared.Money(amount)
	if !amount.IsPositive() {
		return books.Voucher{}, shared.Invalid("amount", "must be greater than zero")
	}
	var updated books.Voucher
	err := s.store.WithTx(ctx, func(ctx context.Context, tx books.Tx) error {
		v, err := tx.GetVoucherForUpdate(ctx, voucherType, id)
		if err != nil {
			return err
		}
		v.PaidAmount = v.PaidAmount.Add(amount)
		v.PaymentStatus = books.StatusFor(v.PaidAmount, v.Total)
		if err := tx.UpdateVoucherPayment(ctx, v.ID, v.PaidAmount, v.PaymentStatus); err != nil {
			return err
		}
		updated = v
		return nil
	})
	if err != nil {
		return books.Voucher{}, err
	}
	s.afterWrite(ctx, "voucher.payment", id, map[string]any{
		"voucher_type":   voucherType,
		"amount":         amount.StringFixed(2),
		"payment_status": updated.PaymentStatus,
	})
	return updated, nil
}

func (s *Service) afterWrite(ctx context.Context, action string, id uuid.UUID, meta map[string]any) {
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.WarnContext(ctx, "bump report cache", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    shared.SubjectFromContext(ctx),
			Action:   action,
			Entity:   "voucher",
			EntityID: id.String(),
			Meta:     meta,
			At:       s.now(),
		})
	}
}
