package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	vouchersPosted  *prometheus.CounterVec
	postDuration    *prometheus.HistogramVec
	reportBuilds    *prometheus.CounterVec
	integrityDrift  *prometheus.GaugeVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	posted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_vouchers_posted_total",
		Help: "Jumlah posting voucher berdasarkan tipe dan hasil.",
	}, []string{"type", "outcome"})
	postDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_voucher_post_duration_seconds",
		Help:    "Durasi posting voucher per tipe.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_builds_total",
		Help: "Jumlah laporan keuangan yang disajikan berdasarkan sumber (cache atau build).",
	}, []string{"report", "source"})
	drift := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "odyssey_ledger_integrity_drift",
		Help: "Jumlah selisih integritas buku besar dari pemeriksaan terakhir.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, posted, postDuration, reports, drift)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		vouchersPosted:  posted,
		postDuration:    postDuration,
		reportBuilds:    reports,
		integrityDrift:  drift,
	}
}

// ObservePosting mencatat hasil dan durasi posting voucher.
func (m *Metrics) ObservePosting(voucherType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.vouchersPosted.WithLabelValues(voucherType, outcome).Inc()
	m.postDuration.WithLabelValues(voucherType).Observe(elapsed.Seconds())
}

// CountReportBuild mencatat sumber laporan: "cache" atau "build".
func (m *Metrics) CountReportBuild(report, source string) {
	if m == nil {
		return
	}
	m.reportBuilds.WithLabelValues(report, source).Inc()
}

// SetIntegrityDrift menyimpan jumlah selisih per jenis.
func (m *Metrics) SetIntegrityDrift(kind string, count int) {
	if m == nil {
		return
	}
	m.integrityDrift.WithLabelValues(kind).Set(float64(count))
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
