package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// IntegrityVerifier checks stored balances against ledger history.
type IntegrityVerifier interface {
	VerifyIntegrity(ctx context.Context) (ledger.IntegrityReport, error)
}

// DriftGauge publishes the latest drift counts.
type DriftGauge interface {
	SetIntegrityDrift(kind string, count int)
}

// LedgerIntegrityJob runs the integrity check and publishes drift counts.
type LedgerIntegrityJob struct {
	Verifier IntegrityVerifier
	Gauge    DriftGauge
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewLedgerIntegrityJob wires dependencies for the integrity handler.
func NewLedgerIntegrityJob(verifier IntegrityVerifier, gauge DriftGauge, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Verifier: verifier, Gauge: gauge, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLedgerIntegrity tasks. Drift is reported, not retried.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Verifier == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskLedgerIntegrity)
	defer func() { err = tracker.End(err) }()

	logger := j.logger()
	if payload.RequestedBy != "" {
		logger = logger.With(slog.String("requested_by", payload.RequestedBy))
	}

	report, err := j.Verifier.VerifyIntegrity(ctx)
	if err != nil {
		logger.Error("verify ledger integrity", slog.Any("error", err))
		return err
	}
	if j.Gauge != nil {
		j.Gauge.SetIntegrityDrift("account", len(report.AccountDrift))
		j.Gauge.SetIntegrityDrift("stock", len(report.StockDrift))
		j.Gauge.SetIntegrityDrift("journal", len(report.UnbalancedEntries))
	}
	logger.Info("ledger integrity checked",
		slog.Int("accounts", report.AccountsChecked),
		slog.Int("items", report.ItemsChecked),
		slog.Int("entries", report.EntriesChecked),
		slog.Bool("clean", report.Clean()))
	return nil
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}

func (j *LedgerIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
