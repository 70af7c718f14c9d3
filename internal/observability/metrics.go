// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Monitor metrics
	NotificationsReceived prometheus.Counter
	NotificationsSkipped  *prometheus.CounterVec
	DuplicateSignatures   prometheus.Counter
	ClassificationErrors  *prometheus.CounterVec
	SwapEventsClassified  *prometheus.CounterVec

	// Mirror metrics
	MirroredTrades *prometheus.CounterVec
	SkippedTrades  *prometheus.CounterVec
	OpenPositions  prometheus.Gauge
	RealizedProfit prometheus.Histogram
	TradeLatency   *prometheus.HistogramVec

	// Exit metrics
	ExitChecks      *prometheus.CounterVec
	ExitSells       prometheus.Counter
	ExitCycleLength prometheus.Histogram

	// External call metrics
	ExternalCallErrors *prometheus.CounterVec
	RPCCallLatency     *prometheus.HistogramVec
	RPCCallErrors      *prometheus.CounterVec

	// Audit metrics
	AuditWrites *prometheus.CounterVec

	// Health metrics
	LastNotification prometheus.Gauge
	StartTime        prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg. A nil reg uses
// the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "copytrader"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	m := &Metrics{
		// Monitor metrics
		NotificationsReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "notifications_received_total",
			Help:      "Total number of log notifications received for the target wallet",
		}),
		NotificationsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "notifications_skipped_total",
			Help:      "Notifications dropped before classification by reason",
		}, []string{"reason"}),
		DuplicateSignatures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "duplicate_signatures_total",
			Help:      "Notifications suppressed by the signature cache",
		}),
		ClassificationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "errors_total",
			Help:      "Transactions that could not be classified by dex",
		}, []string{"dex"}),
		SwapEventsClassified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "swap_events_total",
			Help:      "Swap events produced by dex and type",
		}, []string{"dex", "type"}),

		// Mirror metrics
		MirroredTrades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "trades_total",
			Help:      "Mirrored trades by side and status",
		}, []string{"side", "status"}),
		SkippedTrades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "skipped_total",
			Help:      "Swap events not mirrored by reason",
		}, []string{"reason"}),
		OpenPositions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "open_positions",
			Help:      "Number of held positions",
		}),
		RealizedProfit: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "realized_profit_percent",
			Help:      "Profit percentage of closed positions",
			Buckets:   []float64{-90, -50, -25, -10, 0, 10, 25, 50, 100, 200, 500},
		}),
		TradeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "trade_latency_seconds",
			Help:      "Time from event receipt to confirmed mirrored trade",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"side"}),

		// Exit metrics
		ExitChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exit",
			Name:      "checks_total",
			Help:      "Exit value checks by result",
		}, []string{"result"}),
		ExitSells: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exit",
			Name:      "sells_total",
			Help:      "Positions closed by the exit policy",
		}),
		ExitCycleLength: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exit",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one exit evaluation cycle",
			Buckets:   prometheus.DefBuckets,
		}),

		// External call metrics
		ExternalCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "errors_total",
			Help:      "Failed external calls by operation",
		}, []string{"op"}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Failed Solana RPC calls by method",
		}, []string{"method"}),

		// Audit metrics
		AuditWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "writes_total",
			Help:      "Audit sink writes by sink and status",
		}, []string{"sink", "status"}),

		// Health metrics
		LastNotification: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_notification_timestamp",
			Help:      "Unix timestamp of the last notification received",
		}),
		StartTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "start_timestamp",
			Help:      "Unix timestamp of process start",
		}),
	}
	m.StartTime.SetToCurrentTime()
	return m
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide metrics registered with the default registerer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics("", nil)
	})
	return defaultMetrics
}

// RecordNotification records a received notification.
func (m *Metrics) RecordNotification() {
	if m == nil {
		return
	}
	m.NotificationsReceived.Inc()
	m.LastNotification.SetToCurrentTime()
}

// RecordNotificationSkipped records a notification dropped before classification.
func (m *Metrics) RecordNotificationSkipped(reason string) {
	if m == nil {
		return
	}
	m.NotificationsSkipped.WithLabelValues(reason).Inc()
}

// RecordDuplicate records a signature suppressed by the cache.
func (m *Metrics) RecordDuplicate() {
	if m == nil {
		return
	}
	m.DuplicateSignatures.Inc()
}

// RecordClassified records a classification outcome.
func (m *Metrics) RecordClassified(dex, swapType string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ClassificationErrors.WithLabelValues(dex).Inc()
		return
	}
	m.SwapEventsClassified.WithLabelValues(dex, swapType).Inc()
}

// RecordTrade records a mirrored trade attempt.
func (m *Metrics) RecordTrade(side, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MirroredTrades.WithLabelValues(side, status).Inc()
	if status == "success" {
		m.TradeLatency.WithLabelValues(side).Observe(elapsed.Seconds())
	}
}

// RecordSkip records an event that was not mirrored.
func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.SkippedTrades.WithLabelValues(reason).Inc()
}

// RecordProfit records the profit percentage of a closed position.
func (m *Metrics) RecordProfit(percent float64) {
	if m == nil {
		return
	}
	m.RealizedProfit.Observe(percent)
}

// SetOpenPositions updates the open positions gauge.
func (m *Metrics) SetOpenPositions(n int) {
	if m == nil {
		return
	}
	m.OpenPositions.Set(float64(n))
}

// RecordExitCheck records one exit value check.
func (m *Metrics) RecordExitCheck(result string) {
	if m == nil {
		return
	}
	m.ExitChecks.WithLabelValues(result).Inc()
}

// RecordExitSell records a position closed by the exit policy.
func (m *Metrics) RecordExitSell() {
	if m == nil {
		return
	}
	m.ExitSells.Inc()
}

// RecordExitCycle records the duration of an exit cycle.
func (m *Metrics) RecordExitCycle(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ExitCycleLength.Observe(elapsed.Seconds())
}

// RecordExternalError records a failed external call.
func (m *Metrics) RecordExternalError(op string) {
	if m == nil {
		return
	}
	m.ExternalCallErrors.WithLabelValues(op).Inc()
}

// ObserveRPC records RPC call latency. It matches solana.CallObserver.
func (m *Metrics) ObserveRPC(method string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordAuditWrite records an audit sink write.
func (m *Metrics) RecordAuditWrite(sink string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.AuditWrites.WithLabelValues(sink, status).Inc()
}
