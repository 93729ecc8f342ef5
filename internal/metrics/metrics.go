// Package metrics holds the Prometheus collectors for the store and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	eventsTotal    prometheus.Gauge
	mutationsTotal *prometheus.CounterVec
	requestsTotal  *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	importQueued   prometheus.Counter
	importDropped  prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "golocalevents",
			Subsystem: "store",
			Name:      "events",
			Help:      "Number of events in the canonical collection",
		}),
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "golocalevents",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store load and mutation operations by result",
		}, []string{"op", "result"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "golocalevents",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "golocalevents",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		importQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "golocalevents",
			Subsystem: "import",
			Name:      "queued_total",
			Help:      "Drafts accepted into the import queue",
		}),
		importDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "golocalevents",
			Subsystem: "import",
			Name:      "rejected_total",
			Help:      "Drafts rejected because the import queue was full",
		}),
	}
	reg.MustRegister(
		m.eventsTotal, m.mutationsTotal, m.requestsTotal,
		m.requestSeconds, m.importQueued, m.importDropped,
	)
	return m
}

// ObserveMutation implements store.Observer.
func (m *Metrics) ObserveMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mutationsTotal.WithLabelValues(op, result).Inc()
}

// ObserveCount implements store.Observer.
func (m *Metrics) ObserveCount(n int) {
	m.eventsTotal.Set(float64(n))
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ImportQueued(n int) { m.importQueued.Add(float64(n)) }
func (m *Metrics) ImportRejected()    { m.importDropped.Inc() }
