package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the prometheus side of the adapter.
type Metrics struct {
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	logins         *prometheus.CounterVec
	extractionGaps prometheus.Counter
	gatherer       prometheus.Gatherer
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fetlife_adapter_requests_total",
			Help: "Requests served, by route and status code.",
		}, []string{"route", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fetlife_adapter_request_duration_seconds",
			Help:    "Time to serve a request, including every call made to the site.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fetlife_adapter_logins_total",
			Help: "Login attempts, by result.",
		}, []string{"result"}),
		extractionGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fetlife_adapter_extraction_gaps_total",
			Help: "Listing entries skipped because they could not be parsed.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(m.requests, m.latency, m.logins, m.extractionGaps)
	return m
}

func (m *Metrics) RecordRequest(route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RecordLogin(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordExtractionGaps(count int) {
	if count > 0 {
		m.extractionGaps.Add(float64(count))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
