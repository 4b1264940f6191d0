package server

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gptdesk",
		Subsystem: "server",
		Name:      "requests_total",
		Help:      "Requests served by the local HTTP surface, labeled by route and status.",
	}, []string{"route", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gptdesk",
		Subsystem: "server",
		Name:      "request_duration_seconds",
		Help:      "End-to-end handling time, including the outbound API call.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60, 120, 300},
	}, []string{"route"})

	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gptdesk",
		Subsystem: "server",
		Name:      "in_flight_requests",
		Help:      "Requests currently being handled.",
	})

	apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gptdesk",
		Subsystem: "api",
		Name:      "errors_total",
		Help:      "Failed outbound API calls, labeled by endpoint and error type.",
	}, []string{"endpoint", "type"})

	reloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gptdesk",
		Subsystem: "server",
		Name:      "config_reloads_total",
		Help:      "Config reloads, labeled by result.",
	}, []string{"result"})
)

// registerMetrics registers the collectors with the default registry.
// Safe to call multiple times.
func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsTotal, requestDuration, inFlight, apiErrorsTotal, reloadsTotal)
	})
}

func observeRequest(route string, status int, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(route).Observe(seconds)
}
