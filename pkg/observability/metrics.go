package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Subscription lifecycle metrics
	SubscriptionOpsTotal      *prometheus.CounterVec
	SubscriptionsExpiringSoon prometheus.Gauge

	// Quota metrics
	QuotaConsumptionTotal *prometheus.CounterVec
	QuotaDeniedTotal      *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turnstile_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SubscriptionOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_subscription_operations_total",
				Help: "Total number of subscription lifecycle operations",
			},
			[]string{"operation", "plan"},
		),
		SubscriptionsExpiringSoon: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "turnstile_subscriptions_expiring_soon",
				Help: "Paid subscriptions lapsing within the sweep window",
			},
		),
		QuotaConsumptionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_quota_consumption_total",
				Help: "Total consumed units per resource type",
			},
			[]string{"resource"},
		),
		QuotaDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_quota_denied_total",
				Help: "Total requests denied by quota admission control",
			},
			[]string{"resource"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "turnstile_cache_hits_total",
				Help: "Total billing info cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "turnstile_cache_misses_total",
				Help: "Total billing info cache misses",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SubscriptionOpsTotal,
		m.SubscriptionsExpiringSoon,
		m.QuotaConsumptionTotal,
		m.QuotaDeniedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one served HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, httpStatusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func httpStatusLabel(status int) string {
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
