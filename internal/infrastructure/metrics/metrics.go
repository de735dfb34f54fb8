// Package metrics exposes Prometheus counters for the reconciliation engine.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"freshledger/internal/core/types"
	"freshledger/internal/domain/payments"
	"freshledger/internal/domain/purchasing"
	"freshledger/internal/infrastructure/storage/postgres"
)

// EngineMetrics implements purchasing.Metrics and payments.Metrics.
type EngineMetrics struct {
	purchases     *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	ratioFallback prometheus.Counter
	payments      prometheus.Counter
	applied       prometheus.Counter
	unapplied     prometheus.Counter
}

var (
	_ purchasing.Metrics = (*EngineMetrics)(nil)
	_ payments.Metrics   = (*EngineMetrics)(nil)
)

// New registers the engine collectors on registerer.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &EngineMetrics{
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freshledger_purchases_total",
			Help: "Recorded purchases by resulting order purchase status.",
		}, []string{"verdict"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freshledger_computation_fallback_total",
			Help: "Computation fallbacks taken while recording purchases.",
		}, []string{"kind"}),
		ratioFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freshledger_ratio_fallback_total",
			Help: "Charge projections that fell back to the requested quantity.",
		}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freshledger_payments_total",
			Help: "Recorded payments.",
		}),
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freshledger_payment_applied_amount_total",
			Help: "Money applied to charges.",
		}),
		unapplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freshledger_payment_unapplied_amount_total",
			Help: "Money left unapplied after distribution.",
		}),
	}

	registerer.MustRegister(m.purchases, m.fallbacks, m.ratioFallback, m.payments, m.applied, m.unapplied)
	return m
}

// PurchaseRecorded counts a committed purchase by verdict.
func (m *EngineMetrics) PurchaseRecorded(verdict purchasing.Verdict) {
	label := string(verdict)
	if label == "" {
		label = "none"
	}
	m.purchases.WithLabelValues(label).Inc()
}

// Fallback counts a computation fallback.
func (m *EngineMetrics) Fallback(kind purchasing.FallbackKind) {
	m.fallbacks.WithLabelValues(string(kind)).Inc()
	if kind == purchasing.FallbackRatio {
		m.ratioFallback.Inc()
	}
}

// PaymentRecorded counts a payment and its distribution.
func (m *EngineMetrics) PaymentRecorded(applied, unapplied types.Money) {
	m.payments.Inc()
	m.applied.Add(applied.InexactFloat64())
	m.unapplied.Add(unapplied.InexactFloat64())
}

// PoolCollector publishes pgx pool statistics as gauges.
type PoolCollector struct {
	stats    func() postgres.PoolStats
	total    *prometheus.Desc
	idle     *prometheus.Desc
	acquired *prometheus.Desc
	max      *prometheus.Desc
	waited   *prometheus.Desc
}

// NewPoolCollector creates a collector reading stats on every scrape.
func NewPoolCollector(stats func() postgres.PoolStats) *PoolCollector {
	return &PoolCollector{
		stats:    stats,
		total:    prometheus.NewDesc("freshledger_db_pool_total_conns", "Open pool connections.", nil, nil),
		idle:     prometheus.NewDesc("freshledger_db_pool_idle_conns", "Idle pool connections.", nil, nil),
		acquired: prometheus.NewDesc("freshledger_db_pool_acquired_conns", "Connections in use.", nil, nil),
		max:      prometheus.NewDesc("freshledger_db_pool_max_conns", "Configured pool size.", nil, nil),
		waited:   prometheus.NewDesc("freshledger_db_pool_waited_acquires_total", "Acquires that waited for a free connection.", nil, nil),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.acquired
	ch <- c.max
	ch <- c.waited
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns))
	ch <- prometheus.MustNewConstMetric(c.waited, prometheus.CounterValue, float64(s.EmptyAcquireCount))
}

// HTTPMetrics implements middleware.RequestObserver.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	panics   *prometheus.CounterVec
}

// NewHTTP registers the request collectors on registerer.
func NewHTTP(registerer prometheus.Registerer) *HTTPMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &HTTPMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "freshledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route", "status"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freshledger_http_panics_total",
			Help: "Handler panics recovered by route.",
		}, []string{"route"}),
	}
	registerer.MustRegister(m.duration, m.panics)
	return m
}

// ObserveRequest records one request; status is bucketed to its class (2xx,
// 4xx, ...) to bound label cardinality.
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.duration.WithLabelValues(method, route, fmt.Sprintf("%dxx", status/100)).Observe(elapsed.Seconds())
}

// Panic counts a recovered panic.
func (m *HTTPMetrics) Panic(route string) {
	m.panics.WithLabelValues(route).Inc()
}
