package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.SubscriptionOpsTotal.WithLabelValues("create_or_renew", "professional").Inc()
	m.QuotaConsumptionTotal.WithLabelValues("apps").Add(3)
	m.SubscriptionsExpiringSoon.Set(2)
	m.ObserveHTTPRequest("GET", "/tenants/{tenant_id}/billing-info", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "turnstile_subscription_operations_total")
	assert.Contains(t, body, "turnstile_quota_consumption_total")
	assert.Contains(t, body, "turnstile_subscriptions_expiring_soon 2")
	assert.Contains(t, body, "turnstile_http_requests_total")
}

func TestNewMetrics_NilRegistry(t *testing.T) {
	// A nil registry gets a private one, so repeated construction in
	// tests cannot collide
	m1 := NewMetrics(nil)
	m2 := NewMetrics(nil)
	assert.NotNil(t, m1)
	assert.NotNil(t, m2)
}

func TestHTTPStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", httpStatusLabel(200))
	assert.Equal(t, "3xx", httpStatusLabel(302))
	assert.Equal(t, "4xx", httpStatusLabel(404))
	assert.Equal(t, "5xx", httpStatusLabel(500))
}
