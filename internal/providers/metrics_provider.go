package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"snapfeed/internal/structures"
	"time"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncGatewayCalls(method string, node string, outcome string)
	ObserveGatewayDuration(method string, duration time.Duration)
	IncFetches(kind string, outcome string)
	IncSessionsOpened()
	IncSessionsClosed()
	SetSessionsActive(count int)
	SetContainersResident(count int)
	SetSnapsResident(count int)
}

type MetricsProvider struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	gatewayCalls       *prometheus.CounterVec
	gatewayDuration    *prometheus.HistogramVec
	fetchesTotal       *prometheus.CounterVec
	sessionsOpened     prometheus.Counter
	sessionsClosed     prometheus.Counter
	sessionsActive     prometheus.Gauge
	containersResident prometheus.Gauge
	snapsResident      prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncGatewayCalls(method string, node string, outcome string) {
	m.gatewayCalls.WithLabelValues(method, node, outcome).Inc()
}

func (m *MetricsProvider) ObserveGatewayDuration(method string, duration time.Duration) {
	m.gatewayDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncFetches(kind string, outcome string) {
	m.fetchesTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *MetricsProvider) IncSessionsOpened() {
	m.sessionsOpened.Inc()
}

func (m *MetricsProvider) IncSessionsClosed() {
	m.sessionsClosed.Inc()
}

func (m *MetricsProvider) SetSessionsActive(count int) {
	m.sessionsActive.Set(float64(count))
}

func (m *MetricsProvider) SetContainersResident(count int) {
	m.containersResident.Set(float64(count))
}

func (m *MetricsProvider) SetSnapsResident(count int) {
	m.snapsResident.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snapfeed_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapfeed_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapfeed_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapfeed_cache_misses_total",
			Help: "Total number of response cache misses",
		}),

		gatewayCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snapfeed_gateway_calls_total",
			Help: "Total number of Hive RPC calls per method, node and outcome",
		}, []string{"method", "node", "outcome"}),

		gatewayDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapfeed_gateway_duration_seconds",
			Help:    "Hive RPC call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),

		fetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snapfeed_fetches_total",
			Help: "Total number of feed fetch attempts per kind and outcome",
		}, []string{"kind", "outcome"}),

		sessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapfeed_sessions_opened_total",
			Help: "Total number of sessions opened",
		}),

		sessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snapfeed_sessions_closed_total",
			Help: "Total number of sessions closed",
		}),

		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "snapfeed_sessions_active",
			Help: "Current number of live sessions",
		}),

		containersResident: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "snapfeed_containers_resident",
			Help: "Containers currently held across all session ledgers",
		}),

		snapsResident: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "snapfeed_snaps_resident",
			Help: "Snaps currently held across all session ledgers",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncGatewayCalls(_ string, _ string, _ string)     {}
func (n *noopMetrics) ObserveGatewayDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncFetches(_ string, _ string)                    {}
func (n *noopMetrics) IncSessionsOpened()                               {}
func (n *noopMetrics) IncSessionsClosed()                               {}
func (n *noopMetrics) SetSessionsActive(_ int)                          {}
func (n *noopMetrics) SetContainersResident(_ int)                      {}
func (n *noopMetrics) SetSnapsResident(_ int)                           {}
