// Package metrics holds the Prometheus collectors exported by tally.
package metrics

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exported metric names, shared with the dashboard that scrapes them.
const (
	CounterValue    = "tally_counter_value"
	CounterPoisoned = "tally_counter_poisoned"
	Requests        = "tally_http_requests_total"
	RequestDuration = "tally_http_request_duration_seconds"
)

// CounterSource is read at scrape time for the counter gauges.
type CounterSource interface {
	Value() (int64, error)
	Poisoned() bool
}

// Metrics is a private registry plus the collectors tally updates.
type Metrics struct {
	reg *prometheus.Registry

	value    prometheus.GaugeFunc
	poisoned prometheus.GaugeFunc
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New builds and registers every collector on a fresh registry.
func New(src CounterSource) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		value: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: CounterValue,
			Help: "Last request number handed out, NaN once poisoned.",
		}, func() float64 {
			v, err := src.Value()
			if err != nil {
				return math.NaN()
			}
			return float64(v)
		}),
		poisoned: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: CounterPoisoned,
			Help: "1 once the request counter lock has been poisoned.",
		}, func() float64 {
			if src.Poisoned() {
				return 1
			}
			return 0
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: Requests,
				Help: "Total HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    RequestDuration,
				Help:    "HTTP request latency by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	m.reg.MustRegister(
		m.value,
		m.poisoned,
		m.requests,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}
