package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ethhistory_upstream_requests_total", Help: "Upstream requests by source and outcome"},
		[]string{"source", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "ethhistory_upstream_request_duration_seconds", Help: "Upstream request latency", Buckets: prometheus.DefBuckets},
		[]string{"source"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ethhistory_cache_lookups_total", Help: "Collection cache lookups"},
		[]string{"collection", "result"},
	)
	SharedFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ethhistory_shared_fetches_total", Help: "Callers that joined an in-flight collection fetch"},
		[]string{"collection"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "Request latency", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "ethhistory_live_subscribers", Help: "Open live block connections"},
	)
)

func init() {
	prometheus.MustRegister(UpstreamRequests, UpstreamDuration, CacheLookups, SharedFetches, HTTPRequestDuration, LiveSubscribers)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
