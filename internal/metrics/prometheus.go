package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gmv_dashboard_load_duration_seconds",
			Help:    "Dataset read and normalization duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"dataset"},
	)

	LoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmv_dashboard_load_total",
			Help: "Dataset loads that reached the source, by outcome",
		},
		[]string{"dataset", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmv_dashboard_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"tier"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmv_dashboard_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"tier"},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gmv_dashboard_cache_entries",
			Help: "Tables held by the local cache",
		},
	)

	CacheInvalidations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gmv_dashboard_cache_invalidations_total",
			Help: "Cache entries dropped by explicit invalidation",
		},
	)

	RemoteCacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmv_dashboard_remote_cache_errors_total",
			Help: "Remote cache operations that failed",
		},
		[]string{"op"},
	)

	RemoteCacheOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gmv_dashboard_remote_cache_breaker_open",
			Help: "1 while the remote cache circuit breaker is not closed",
		},
	)

	ViewErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmv_dashboard_view_errors_total",
			Help: "Derived view builds that failed",
		},
		[]string{"view"},
	)

	PageRenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gmv_dashboard_page_render_duration_seconds",
			Help:    "Page composition duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"page", "status"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gmv_dashboard_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	RefreshSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gmv_dashboard_refresh_subscribers",
			Help: "Open websocket refresh subscriptions",
		},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			LoadDuration,
			LoadTotal,
			CacheHits,
			CacheMisses,
			CacheEntries,
			CacheInvalidations,
			RemoteCacheErrors,
			RemoteCacheOpen,
			ViewErrors,
			PageRenderDuration,
			RateLimited,
			RefreshSubscribers,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
