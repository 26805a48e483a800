package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
)

// Warmer rebuilds the commonly read statements.
type Warmer interface {
	Warm(ctx context.Context) error
}

// StatementsWarmupJob pre-populates the report cache.
type StatementsWarmupJob struct {
	Warmer  Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewStatementsWarmupJob wires dependencies for the warmup handler.
func NewStatementsWarmupJob(warmer Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatementsWarmupJob {
	return &StatementsWarmupJob{Warmer: warmer, Logger: logger, Metrics: metrics, Timeout: 30 * time.Second}
}

// Handle processes TaskStatementsWarmup tasks.
func (j *StatementsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Warmer == nil {
		return errors.New("statements warmup: handler not configured")
	}
	var payload StatementsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskStatementsWarmup)
	defer func() { err = tracker.End(err) }()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskStatementsWarmup), slog.Int64("version", payload.Version))

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	started := time.Now()
	if err := j.Warmer.Warm(ctx); err != nil {
		logger.Error("warm statements", slog.Any("error", err))
		return err
	}
	logger.Info("statements warmed", slog.Duration("duration", time.Since(started)))
	return nil
}
