package statements

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Handler serves statement reports as JSON and PDF.
type Handler struct {
	logger  *slog.Logger
	service *Service
	company string
}

// NewHandler builds Handler instance. company titles PDF exports.
func NewHandler(logger *slog.Logger, service *Service, company string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if company == "" {
		company = "Odyssey Books"
	}
	return &Handler{logger: logger, service: service, company: company}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/profit-loss", h.profitAndLoss)
	r.Get("/reports/profit-loss.pdf", h.profitAndLossPDF)
	r.Get("/reports/balance-sheet", h.balanceSheet)
	r.Get("/reports/balance-sheet.pdf", h.balanceSheetPDF)
	r.Get("/reports/gst", h.gst)
	r.Get("/reports/trial-balance", h.trialBalance)
	r.Get("/reports/stock", h.stock)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), rng)
	if err != nil {
		h.fail(w, r, ReportProfitAndLoss, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) profitAndLossPDF(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), rng)
	if err != nil {
		h.fail(w, r, ReportProfitAndLoss, err)
		return
	}
	doc, err := RenderProfitAndLossPDF(h.company, pl)
	if err != nil {
		h.fail(w, r, ReportProfitAndLoss, err)
		return
	}
	writePDF(w, "profit-loss.pdf", doc)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryAsOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, ReportBalanceSheet, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) balanceSheetPDF(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryAsOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, ReportBalanceSheet, err)
		return
	}
	doc, err := RenderBalanceSheetPDF(h.company, bs)
	if err != nil {
		h.fail(w, r, ReportBalanceSheet, err)
		return
	}
	writePDF(w, "balance-sheet.pdf", doc)
}

func (h *Handler) gst(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.GSTReport(r.Context(), rng)
	if err != nil {
		h.fail(w, r, ReportGST, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), rng)
	if err != nil {
		h.fail(w, r, ReportTrialBalance, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.StockReport(r.Context())
	if err != nil {
		h.fail(w, r, ReportStock, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, report string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.ErrorContext(r.Context(), "report build failed", slog.String("report", report), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func queryRange(r *http.Request) (shared.DateRange, error) {
	q := r.URL.Query()
	return shared.ParseDateRange(q.Get("from_date"), q.Get("to_date"))
}

func queryAsOf(r *http.Request) (shared.Date, error) {
	raw := r.URL.Query().Get("as_on_date")
	if raw == "" {
		return shared.Date{}, nil
	}
	d, err := shared.ParseDate(raw)
	if err != nil {
		return shared.Date{}, shared.Invalid("as_on_date", err.Error())
	}
	return d, nil
}

func writePDF(w http.ResponseWriter, filename string, doc []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
