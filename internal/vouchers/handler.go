package vouchers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyModule = "vouchers"
)

// Handler exposes voucher endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
}

// NewHandler builds Handler instance. idempotency may be nil.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idempotency, validator: httpx.NewValidator()}
}

// MountRoutes registers voucher routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/vouchers/{type}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.post)
		r.Get("/{id}", h.get)
		r.Post("/{id}/payments", h.recordPayment)
	})
}

type itemLineRequest struct {
	ItemID   uuid.UUID       `json:"item_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

type journalLineRequest struct {
	AccountID uuid.UUID       `json:"account_id" validate:"required"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration" validate:"max=500"`
}

type postVoucherRequest struct {
	VoucherNumber string `json:"voucher_number" validate:"required,max=50"`
	VoucherDate   string `json:"voucher_date" validate:"required"`

	CustomerID        uuid.UUID `json:"customer_id"`
	SupplierID        uuid.UUID `json:"supplier_id"`
	PartyID           uuid.UUID `json:"party_id"`
	AccountID         uuid.UUID `json:"account_id"`
	ExpenseAccountID  uuid.UUID `json:"expense_account_id"`
	PaidFromAccountID uuid.UUID `json:"paid_from_account_id"`
	ToAccountID       uuid.UUID `json:"to_account_id"`
	FromAccountID     uuid.UUID `json:"from_account_id"`

	Items []itemLineRequest    `json:"items" validate:"dive"`
	Lines []journalLineRequest `json:"lines" validate:"dive"`

	Subtotal    decimal.NullDecimal `json:"subtotal"`
	TaxAmount   decimal.NullDecimal `json:"tax_amount"`
	Discount    decimal.Decimal     `json:"discount"`
	TotalAmount decimal.NullDecimal `json:"total_amount"`
	Amount      decimal.Decimal     `json:"amount"`

	PaymentMode string `json:"payment_mode" validate:"omitempty,oneof=cash bank upi cheque"`
	Reference   string `json:"reference" validate:"max=100"`
	Notes       string `json:"notes" validate:"max=1000"`
	Narration   string `json:"narration" validate:"max=1000"`
}

type recordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (req postVoucherRequest) toRequest(voucherType books.VoucherType) (Request, error) {
	date, err := shared.ParseDate(req.VoucherDate)
	if err != nil {
		return Request{}, shared.Invalid("voucher_date", err.Error())
	}
	out := Request{
		Type:        voucherType,
		Number:      req.VoucherNumber,
		Date:        date,
		Subtotal:    req.Subtotal,
		TaxAmount:   req.TaxAmount,
		Discount:    req.Discount,
		Total:       req.TotalAmount,
		Amount:      req.Amount,
		PaymentMode: books.PaymentMode(req.PaymentMode),
		Reference:   req.Reference,
		Notes:       firstNonEmpty(req.Notes, req.Narration),
	}
	switch voucherType {
	case books.VoucherSales:
		out.PartyID = req.CustomerID
	case books.VoucherPurchase:
		out.PartyID = req.SupplierID
	case books.VoucherPayment, books.VoucherReceipt:
		out.PartyID = req.PartyID
		out.AccountID = req.AccountID
	case books.VoucherExpense:
		out.AccountID = req.ExpenseAccountID
		out.CounterAccountID = req.PaidFromAccountID
	case books.VoucherContra:
		out.AccountID = req.ToAccountID
		out.CounterAccountID = req.FromAccountID
	}
	if voucherType.Invoiced() {
		// Sales and purchase totals come in total_amount; amount is accepted as an alias.
		if !out.Total.Valid && !req.Amount.IsZero() {
			out.Total = decimal.NewNullDecimal(req.Amount)
		}
	} else if out.Amount.IsZero() && req.TotalAmount.Valid {
		out.Amount = req.TotalAmount.Decimal
	}
	for _, line := range req.Items {
		out.Items = append(out.Items, ItemLine(line))
	}
	for _, line := range req.Lines {
		out.Lines = append(out.Lines, LineInput(line))
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func voucherType(r *http.Request) (books.VoucherType, error) {
	t := books.VoucherType(strings.ToLower(chi.URLParam(r, "type")))
	if !t.Valid() {
		return "", shared.Invalid("voucher_type", "unknown voucher type")
	}
	return t, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !httpx.IsClientError(err) {
		h.logger.ErrorContext(r.Context(), "voucher request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	vt, err := voucherType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body postVoucherRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, shared.Invalid("", "malformed JSON body: "+err.Error()))
		return
	}
	if err := httpx.ValidateStruct(h.validator, body); err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := body.toRequest(vt)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.Claim(r.Context(), idempotencyModule, key); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	posted, err := h.service.Post(r.Context(), req)
	if err != nil {
		if key != "" && h.idempotency != nil {
			if relErr := h.idempotency.Release(r.Context(), idempotencyModule, key); relErr != nil {
				h.logger.WarnContext(r.Context(), "release idempotency key", slog.Any("error", relErr))
			}
		}
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, posted)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	vt, err := voucherType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	rng, err := shared.ParseDateRange(q.Get("from_date"), q.Get("to_date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.service.List(r.Context(), vt, rng)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []books.Voucher{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	vt, err := voucherType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, shared.Invalid("id", "must be a UUID"))
		return
	}
	detail, err := h.service.Get(r.Context(), vt, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	vt, err := voucherType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, shared.Invalid("id", "must be a UUID"))
		return
	}
	var body recordPaymentRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, shared.Invalid("", "malformed JSON body: "+err.Error()))
		return
	}
	v, err := h.service.RecordPayment(r.Context(), vt, id, body.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}
