// Package metrics exposes Prometheus instrumentation for the backend client,
// voucher validation and the last budget snapshot.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/yesan/internal/model"
)

// Namespace prefixes every metric name.
const Namespace = "yesan"

// Metrics owns a private registry so tests and multiple clients never
// collide on the global one.
type Metrics struct {
	Registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	validations *prometheus.CounterVec
	budgets     *budgetCollector
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Backend requests by client, method and status code.",
		}, []string{"client", "code", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"client", "method"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "api",
			Name:      "in_flight_requests",
			Help:      "Backend requests currently in flight.",
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "voucher",
			Name:      "validations_total",
			Help:      "Completed cross-field validations by rule and outcome.",
		}, []string{"rule", "status"}),
		budgets: newBudgetCollector(),
	}

	m.Registry.MustRegister(
		m.requests,
		m.duration,
		m.inFlight,
		m.validations,
		m.budgets,
		versioncollector.NewCollector(Namespace),
		collectors.NewGoCollector(),
	)
	return m
}

// InstrumentTransport wraps next so every request through it is counted
// and timed under the given client label.
func (m *Metrics) InstrumentTransport(client string, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	labels := prometheus.Labels{"client": client}
	return promhttp.InstrumentRoundTripperInFlight(m.inFlight,
		promhttp.InstrumentRoundTripperCounter(m.requests.MustCurryWith(labels),
			promhttp.InstrumentRoundTripperDuration(m.duration.MustCurryWith(labels), next)))
}

// ObserveValidation counts one completed rule evaluation.
func (m *Metrics) ObserveValidation(rule, status string) {
	m.validations.WithLabelValues(rule, status).Inc()
}

// SetBudgets replaces the exported budget snapshot.
func (m *Metrics) SetBudgets(b model.Budgets) {
	m.budgets.set(b)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// budgetCollector reports the latest budget snapshot as const metrics.
type budgetCollector struct {
	amount  *prometheus.Desc
	monthly *prometheus.Desc
	budgets model.Budgets
	mu      sync.RWMutex
}

func newBudgetCollector() *budgetCollector {
	return &budgetCollector{
		amount: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "budget", "amount_won"),
			"Budget amount per category and kind (total, used, available).",
			[]string{"category", "kind"},
			nil,
		),
		monthly: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "budget", "monthly_usage_percent"),
			"Monthly usage rate per category.",
			[]string{"category"},
			nil,
		),
	}
}

func (c *budgetCollector) set(b model.Budgets) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.budgets = b
}

func (c *budgetCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.amount
	ch <- c.monthly
}

func (c *budgetCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, b := range c.budgets {
		ch <- prometheus.MustNewConstMetric(c.amount, prometheus.GaugeValue, b.Total.InexactFloat64(), name, "total")
		ch <- prometheus.MustNewConstMetric(c.amount, prometheus.GaugeValue, b.Used.InexactFloat64(), name, "used")
		ch <- prometheus.MustNewConstMetric(c.amount, prometheus.GaugeValue, b.Available.InexactFloat64(), name, "available")
		ch <- prometheus.MustNewConstMetric(c.monthly, prometheus.GaugeValue, b.MonthlyUsageRate, name)
	}
}
