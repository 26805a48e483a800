package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/books/memstore"
	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	_ "github.com/odyssey-erp/odyssey-books/testing"
)

type gauge struct {
	mu     sync.Mutex
	values map[string]int
}

func (g *gauge) SetIntegrityDrift(kind string, count int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.values == nil {
		g.values = map[string]int{}
	}
	g.values[kind] = count
}

func runCount(t *testing.T, reg *prometheus.Registry, job, status string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "odyssey_jobs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["job"] == job && labels["status"] == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestLedgerIntegrityJobPublishesDrift(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	master := masterdata.NewService(store, nil, nil, nil)
	_, err := master.SeedChart(ctx)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	g := &gauge{}
	job := NewLedgerIntegrityJob(ledger.NewService(store, nil), g, nil, jobmetrics.NewMetrics(reg))

	task, err := NewLedgerIntegrityTask("admin")
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	require.Equal(t, 0, g.values["account"])
	require.Equal(t, float64(1), runCount(t, reg, TaskLedgerIntegrity, "success"))

	cash, err := master.AccountByCode(ctx, books.CodeCash)
	require.NoError(t, err)
	store.ForceAccountBalance(cash.ID, decimal.NewFromInt(75))

	require.NoError(t, job.Handle(ctx, task))
	require.Equal(t, 1, g.values["account"])
	require.Equal(t, 0, g.values["stock"])
	require.Equal(t, float64(2), runCount(t, reg, TaskLedgerIntegrity, "success"))
}

type failingVerifier struct{}

func (failingVerifier) VerifyIntegrity(context.Context) (ledger.IntegrityReport, error) {
	return ledger.IntegrityReport{}, errors.New("database is closed")
}

func TestLedgerIntegrityJobFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := NewLedgerIntegrityJob(failingVerifier{}, nil, nil, jobmetrics.NewMetrics(reg))

	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, nil))
	require.EqualError(t, err, "database is closed")
	require.Equal(t, float64(1), runCount(t, reg, TaskLedgerIntegrity, "failure"))

	err = job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type warmer struct {
	calls int
	err   error
}

func (w *warmer) Warm(context.Context) error {
	w.calls++
	return w.err
}

func TestStatementsWarmupJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := &warmer{}
	job := NewStatementsWarmupJob(w, nil, jobmetrics.NewMetrics(reg))

	task, err := NewStatementsWarmupTask(7)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, w.calls)

	w.err = errors.New("redis: connection refused")
	require.Error(t, job.Handle(context.Background(), task))
	require.Equal(t, float64(1), runCount(t, reg, TaskStatementsWarmup, "failure"))

	var unset *StatementsWarmupJob
	require.Error(t, unset.Handle(context.Background(), task))
}

type inspector struct {
	info *asynq.QueueInfo
	err  error
}

func (i inspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return i.info, i.err }

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		code      int
		body      string
	}{
		{"no inspector", nil, http.StatusOK, `"pending":0`},
		{"queue info", inspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, http.StatusOK, `"pending":4`},
		{"redis down", inspector{err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable, `Queue unavailable`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.code, rec.Code)
			require.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	require.Error(t, err)
}
