// Package metrics holds the prometheus collectors of the ledger service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loanledger/internal/domain/fault"
)

type LedgerMetrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	published  *prometheus.CounterVec
}

var (
	ledgerOnce sync.Once
	ledger     *LedgerMetrics
)

// Ledger returns the lazily-initialised collectors, registered on a private
// registry together with the go and process collectors.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledger = newLedgerMetrics()
	})
	return ledger
}

func newLedgerMetrics() *LedgerMetrics {
	m := &LedgerMetrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loanledger",
			Name:      "operations_total",
			Help:      "Operations segmented by entity, operation and outcome reason.",
		}, []string{"entity", "operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loanledger",
			Name:      "operation_duration_seconds",
			Help:      "Latency of operations including persistence.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loanledger",
			Name:      "events_published_total",
			Help:      "Event records handed to the stream publisher.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.operations, m.latency, m.published,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOperation records one operation. A nil err counts as "ok", anything
// else under its fault reason.
func (m *LedgerMetrics) ObserveOperation(entity, operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = fault.Reason(err)
	}
	m.operations.WithLabelValues(entity, operation, outcome).Inc()
	m.latency.WithLabelValues(entity, operation).Observe(elapsed.Seconds())
}

func (m *LedgerMetrics) ObservePublish(n int, err error) {
	if m == nil || n == 0 {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.published.WithLabelValues(outcome).Add(float64(n))
}

// Handler serves the registry in the exposition format.
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
