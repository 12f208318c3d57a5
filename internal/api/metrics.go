package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "noderef_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "noderef_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	proxyCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "noderef_proxy_calls_total",
		Help: "Dispatched proxy calls by namespace and result code.",
	}, []string{"namespace", "code"})

	tokenRefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "noderef_token_refreshes_total",
		Help: "OIDC token refresh attempts by outcome.",
	}, []string{"outcome"})

	clientCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "noderef_client_cache_entries",
		Help: "Live repository client cache entries.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, proxyCallsTotal, tokenRefreshesTotal, clientCacheEntries)
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsMiddleware records request metrics.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rr, r)

		dur := time.Since(start).Seconds()
		status := strconv.Itoa(rr.statusCode)
		requestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(dur)
	})
}
