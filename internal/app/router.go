package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/outstanding"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/rbac"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/statements"
	"github.com/odyssey-erp/odyssey-books/internal/vouchers"
	"github.com/odyssey-erp/odyssey-books/jobs"
)

// IntegrityEnqueuer queues ledger integrity runs.
type IntegrityEnqueuer interface {
	EnqueueIntegrityCheck(ctx context.Context, requestedBy string) (string, error)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Services *Services
	Auth     *rbac.Authenticator
	// Jobs is nil when no queue is configured; integrity checks then run inline.
	Jobs       IntegrityEnqueuer
	JobHandler *jobs.Handler
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := params.Services
	company := ""
	if params.Config != nil {
		company = params.Config.CompanyName
	}

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: svc.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", svc.Metrics.Handler())
	}
	jobHandler := params.JobHandler
	if jobHandler == nil {
		jobHandler = jobs.NewHandler(nil, logger)
	}
	r.Route("/jobs", jobHandler.MountRoutes)

	admin := adminHandler{jobs: params.Jobs, ledger: svc.Ledger, logger: logger}
	r.Route("/api", func(r chi.Router) {
		r.Use(rbac.Middleware{Auth: params.Auth, Logger: logger}.RequireAdmin)

		masterdata.NewHandler(logger, svc.MasterData).MountRoutes(r)
		vouchers.NewHandler(logger, svc.Vouchers, svc.Idempotency).MountRoutes(r)
		ledger.NewHandler(logger, svc.Ledger).MountRoutes(r)
		statements.NewHandler(logger, svc.Statements, company).MountRoutes(r)
		outstanding.NewHandler(logger, svc.Outstanding).MountRoutes(r)
		r.Post("/admin/integrity-check", admin.integrityCheck)
	})

	return r
}

type adminHandler struct {
	jobs   IntegrityEnqueuer
	ledger *ledger.Service
	logger *slog.Logger
}

type integrityQueued struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (h adminHandler) integrityCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.jobs == nil {
		report, err := h.ledger.VerifyIntegrity(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "integrity check failed", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
		return
	}
	id, err := h.jobs.EnqueueIntegrityCheck(ctx, shared.SubjectFromContext(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "enqueue integrity check", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, integrityQueued{TaskID: id, Status: "queued"})
}
