package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keycheck"

var (
	registry = prometheus.NewRegistry()

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by route and status class.",
	}, []string{"route", "status"})

	requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	probesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "probes_total",
		Help:      "Capability probe outcomes by probe and failure kind.",
	}, []string{"probe", "outcome", "kind"})

	probeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "probe_duration_seconds",
		Help:      "Capability probe latency, remote call included.",
		// image generation routinely takes tens of seconds
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"probe"})

	credentialMissingTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_missing_total",
		Help:      "Requests rejected because the API key was not configured.",
	})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestsTotal,
		requestLatency,
		probesTotal,
		probeLatency,
		credentialMissingTotal,
	)
}

// RecordRequest records a finished HTTP request
func RecordRequest(route string, status int, latency time.Duration) {
	requestsTotal.WithLabelValues(route, statusClass(status)).Inc()
	requestLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// RecordProbe records one probe run. kind is empty on success.
func RecordProbe(probe string, success bool, kind string, latency time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	probesTotal.WithLabelValues(probe, outcome, kind).Inc()
	probeLatency.WithLabelValues(probe).Observe(latency.Seconds())
}

// RecordCredentialMissing counts a request that found no API key
func RecordCredentialMissing() {
	credentialMissingTotal.Inc()
}

// Handler serves the registry in Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
