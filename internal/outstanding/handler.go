package outstanding

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
)

// Handler serves receivables and payables.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers outstanding routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/receivables", h.serve(h.service.Receivables))
	r.Get("/reports/payables", h.serve(h.service.Payables))
}

func (h *Handler) serve(build func(context.Context) (Report, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := build(r.Context())
		if err != nil {
			if !httpx.IsClientError(err) {
				h.logger.ErrorContext(r.Context(), "outstanding report failed", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
	}
}
