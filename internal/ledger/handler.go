package ledger

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Handler serves ledger queries.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledgers/{dimension}/{id}", h.query)
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	dim := books.Dimension(strings.ToLower(chi.URLParam(r, "dimension")))
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Invalid("id", "must be a UUID"))
		return
	}
	q := r.URL.Query()
	rng, err := shared.ParseDateRange(q.Get("from_date"), q.Get("to_date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.Query(r.Context(), dim, id, rng)
	if err != nil {
		if !httpx.IsClientError(err) {
			h.logger.ErrorContext(r.Context(), "ledger query failed", slog.String("dimension", string(dim)), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}
