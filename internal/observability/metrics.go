// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All methods are safe on a nil receiver, which records nothing.
type Metrics struct {
	// Scan metrics
	BlocksScanned   *prometheus.CounterVec
	LastScannedSlot prometheus.Gauge
	ScanRuns        *prometheus.CounterVec

	// Detection metrics
	TransactionsAnalyzed prometheus.Counter
	TransactionErrors    *prometheus.CounterVec
	SwapsDetected        *prometheus.CounterVec
	MEVFindings          *prometheus.CounterVec
	ArbitrageFound       *prometheus.CounterVec
	UnknownPrograms      prometheus.Counter

	// Latency metrics
	BlockAnalysisDuration prometheus.Histogram
	RPCCallLatency        *prometheus.HistogramVec
	RPCCallErrors         *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_mev_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		BlocksScanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "blocks_total",
			Help:      "Total number of scopes processed by outcome",
		}, []string{"status"}),
		LastScannedSlot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "last_slot",
			Help:      "Highest slot whose analysis completed",
		}),
		ScanRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of scan runs by mode",
		}, []string{"mode"}),

		TransactionsAnalyzed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "transactions_total",
			Help:      "Total number of transactions analyzed",
		}),
		TransactionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "transaction_errors_total",
			Help:      "Transactions that could not be analyzed, by reason",
		}, []string{"reason"}),
		SwapsDetected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "swaps_total",
			Help:      "Detected swaps by confidence",
		}, []string{"confidence"}),
		MEVFindings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mev",
			Name:      "findings_total",
			Help:      "MEV findings by type",
		}, []string{"type"}),
		ArbitrageFound: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arbitrage",
			Name:      "opportunities_total",
			Help:      "Arbitrage opportunities by confidence",
		}, []string{"confidence"}),
		UnknownPrograms: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "unknown_programs_total",
			Help:      "Unregistered programs seen in probable swaps",
		}),

		BlockAnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "block_analysis_seconds",
			Help:      "Time spent analyzing one block",
			Buckets:   prometheus.DefBuckets,
		}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Failed RPC calls by method",
		}, []string{"method"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRPC records an RPC call. Its signature matches solana.Observer.
func (m *Metrics) RecordRPC(method string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordBlock records the outcome of one scope.
func (m *Metrics) RecordBlock(status string, slot int64) {
	if m == nil {
		return
	}
	m.BlocksScanned.WithLabelValues(status).Inc()
	if status == "completed" {
		m.LastScannedSlot.Set(float64(slot))
	}
}

// RecordAnalysis records one analyzed block.
func (m *Metrics) RecordAnalysis(transactions int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TransactionsAnalyzed.Add(float64(transactions))
	m.BlockAnalysisDuration.Observe(elapsed.Seconds())
}

// RecordTransactionError counts a transaction that could not be analyzed.
func (m *Metrics) RecordTransactionError(reason string) {
	if m == nil {
		return
	}
	m.TransactionErrors.WithLabelValues(reason).Inc()
}

// RecordSwap counts a detected swap.
func (m *Metrics) RecordSwap(confidence string) {
	if m == nil {
		return
	}
	m.SwapsDetected.WithLabelValues(confidence).Inc()
}

// RecordFinding counts an MEV finding.
func (m *Metrics) RecordFinding(mevType string) {
	if m == nil {
		return
	}
	m.MEVFindings.WithLabelValues(mevType).Inc()
}

// RecordArbitrage counts an arbitrage opportunity.
func (m *Metrics) RecordArbitrage(confidence string) {
	if m == nil {
		return
	}
	m.ArbitrageFound.WithLabelValues(confidence).Inc()
}

// RecordUnknownProgram counts a sighting of an unregistered program.
func (m *Metrics) RecordUnknownProgram() {
	if m == nil {
		return
	}
	m.UnknownPrograms.Inc()
}

// RecordScanRun counts a scan run.
func (m *Metrics) RecordScanRun(mode string) {
	if m == nil {
		return
	}
	m.ScanRuns.WithLabelValues(mode).Inc()
}
