package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "habridge"

// Collector owns the service's Prometheus metrics and the registry they
// live in. A dedicated registry keeps test instances isolated and avoids
// default-registry collisions.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimitHits   prometheus.Counter

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   *prometheus.GaugeVec

	feedConnected prometheus.Gauge
	cacheActions  *prometheus.CounterVec

	hubErrors *prometheus.CounterVec
}

// New creates a collector with all metrics registered on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		rateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by rate limiting",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		}, []string{"namespace"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		}, []string{"namespace"}),
		cacheSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of live entries per cache namespace",
		}, []string{"namespace"}),
		feedConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected",
			Help:      "Whether the hub event feed is streaming (1) or down (0)",
		}),
		cacheActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "cache_actions_total",
			Help:      "Cache actions taken in response to feed events",
		}, []string{"action"}),
		hubErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "errors_total",
			Help:      "Total number of upstream hub request failures",
		}, []string{"operation"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requestsTotal,
		c.requestDuration,
		c.rateLimitHits,
		c.cacheHits,
		c.cacheMisses,
		c.cacheSize,
		c.feedConnected,
		c.cacheActions,
		c.hubErrors,
	)
	return c
}

// Handler returns the HTTP handler serving the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one completed API request. The path should be the
// route pattern, not the raw URL, to keep cardinality bounded.
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRateLimitHit counts a request rejected by rate limiting.
func (c *Collector) RecordRateLimitHit() {
	c.rateLimitHits.Inc()
}

// RecordCacheHit counts a cache hit in the given namespace.
func (c *Collector) RecordCacheHit(cacheNamespace string) {
	c.cacheHits.WithLabelValues(cacheNamespace).Inc()
}

// RecordCacheMiss counts a cache miss in the given namespace.
func (c *Collector) RecordCacheMiss(cacheNamespace string) {
	c.cacheMisses.WithLabelValues(cacheNamespace).Inc()
}

// SetCacheSize publishes the live entry count for a namespace.
func (c *Collector) SetCacheSize(cacheNamespace string, entries int) {
	c.cacheSize.WithLabelValues(cacheNamespace).Set(float64(entries))
}

// FeedConnected publishes the event feed connection state.
// Satisfies the eventstream metrics interface.
func (c *Collector) FeedConnected(connected bool) {
	if connected {
		c.feedConnected.Set(1)
		return
	}
	c.feedConnected.Set(0)
}

// CacheAction counts a cache action taken for a feed event.
// Satisfies the eventstream metrics interface.
func (c *Collector) CacheAction(action string) {
	c.cacheActions.WithLabelValues(action).Inc()
}

// RecordHubError counts a failed upstream hub call.
func (c *Collector) RecordHubError(operation string) {
	c.hubErrors.WithLabelValues(operation).Inc()
}
