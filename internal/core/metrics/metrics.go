// Package metrics owns the Prometheus collectors for HTTP traffic, the expense engine and the
// event relay. Everything registers on a private registry so tests can build as many as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trip_expense"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	expensesCreated *prometheus.CounterVec
	sharesPaid      prometheus.Counter
	shareConflicts  prometheus.Counter
	chatFailures    prometheus.Counter

	eventsRelayed *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		expensesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_created_total",
			Help:      "Expenses created, by currency.",
		}, []string{"currency"}),
		sharesPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_paid_total",
			Help:      "Shares moved from pending to paid.",
		}),
		shareConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_paid_conflicts_total",
			Help:      "Mark-paid attempts rejected because the share was already paid.",
		}),
		chatFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_message_failures_total",
			Help:      "Expense chat messages that could not be posted.",
		}),
		eventsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_relayed_total",
			Help:      "Domain events forwarded to the broker, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.expensesCreated,
		m.sharesPaid,
		m.shareConflicts,
		m.chatFailures,
		m.eventsRelayed,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ExpenseCreated(currency string) {
	m.expensesCreated.WithLabelValues(currency).Inc()
}

func (m *Metrics) SharePaid() {
	m.sharesPaid.Inc()
}

func (m *Metrics) ShareConflict() {
	m.shareConflicts.Inc()
}

func (m *Metrics) ChatMessageFailed() {
	m.chatFailures.Inc()
}

func (m *Metrics) EventRelayed(eventType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.eventsRelayed.WithLabelValues(eventType, outcome).Inc()
}
