package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tour", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tour", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tour", Name: "upstream_requests_total", Help: "Outbound inventory-API requests."},
		[]string{"endpoint", "status"},
	)
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tour", Name: "upstream_request_duration_seconds",
			Help:    "Outbound inventory-API request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tour", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del|stale
	)
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tour", Name: "token_refreshes_total", Help: "Access-token refresh attempts."},
		[]string{"outcome"}, // outcome: ok|error
	)
	CoalescedCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tour", Name: "coalesced_calls_total", Help: "Pricing calls served without a new upstream request."},
		[]string{"source"}, // source: cache|inflight
	)
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tour", Name: "sync_runs_total", Help: "Nightly sync runs."},
		[]string{"outcome"}, // outcome: ok|skipped|error
	)
	SyncItemFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "tour", Name: "sync_item_failures_total", Help: "Per-property failures during sync."},
	)
)

// Serve starts the side metrics listener when METRICS_ADDR is set.
func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		UpstreamRequests, UpstreamLatency,
		CacheEvents, TokenRefreshes, CoalescedCalls,
		SyncRuns, SyncItemFailures,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveUpstream(endpoint string, status int, dur time.Duration) {
	UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	UpstreamLatency.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del|stale
	CacheEvents.WithLabelValues(cache, event).Inc()
}
