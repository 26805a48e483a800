package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity verifies stored balances against ledger history.
	TaskLedgerIntegrity = "books:ledger_integrity"
	// TaskStatementsWarmup rebuilds cached statements after the cache version moves.
	TaskStatementsWarmup = "books:statements_warmup"
)

// LedgerIntegrityPayload describes an integrity run. RequestedBy is the admin
// subject for on-demand runs and empty for scheduled ones.
type LedgerIntegrityPayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// StatementsWarmupPayload carries the cache version that triggered the warmup.
type StatementsWarmupPayload struct {
	Version int64 `json:"version,omitempty"`
}

// NewLedgerIntegrityTask constructs an integrity task.
func NewLedgerIntegrityTask(requestedBy string) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{RequestedBy: requestedBy})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewStatementsWarmupTask constructs a warmup task.
func NewStatementsWarmupTask(version int64) (*asynq.Task, error) {
	data, err := json.Marshal(StatementsWarmupPayload{Version: version})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementsWarmup, data), nil
}
