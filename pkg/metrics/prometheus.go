package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	attempts     *prometheus.CounterVec
	droppedTicks *prometheus.CounterVec
	evictions    *prometheus.CounterVec
	ledgerSize   *prometheus.GaugeVec
	exports      *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors on reg; tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincollect_collection_attempts_total",
				Help: "Collection attempts by result",
			},
			[]string{"symbol", "result"},
		),
		droppedTicks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincollect_dropped_ticks_total",
				Help: "Cadence ticks dropped because an attempt was still in flight",
			},
			[]string{"symbol"},
		),
		evictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincollect_ledger_evictions_total",
				Help: "Records evicted from full ledgers",
			},
			[]string{"symbol"},
		),
		ledgerSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincollect_ledger_records",
				Help: "Records currently held per ledger",
			},
			[]string{"symbol"},
		),
		exports: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincollect_export_artifacts_total",
				Help: "Export artifacts written",
			},
			[]string{"symbol", "kind"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincollect_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincollect_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAttempt counts one collection attempt ("success" or "failure").
func (r *Recorder) RecordAttempt(symbol, result string) {
	r.attempts.WithLabelValues(symbol, result).Inc()
}

func (r *Recorder) RecordDroppedTick(symbol string) {
	r.droppedTicks.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordEviction(symbol string) {
	r.evictions.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordLedgerSize(symbol string, records int) {
	r.ledgerSize.WithLabelValues(symbol).Set(float64(records))
}

// RecordExport adds written artifacts for a symbol.
func (r *Recorder) RecordExport(symbol, kind string, artifacts int) {
	r.exports.WithLabelValues(symbol, kind).Add(float64(artifacts))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordAttempt(string, string)     {}
func (Nop) RecordDroppedTick(string)         {}
func (Nop) RecordEviction(string)            {}
func (Nop) RecordLedgerSize(string, int)     {}
func (Nop) RecordExport(string, string, int) {}
func (Nop) RecordError(string)               {}
func (Nop) RecordLatency(string, float64)    {}
