// Package middleware provides HTTP middleware for quota admission
// control.
//
// The engine itself never refuses a Consume write; this middleware is
// where admission policy lives. Routes for metered actions wrap their
// handlers in EnforceQuota, which rejects the request when the current
// period's counter has reached the ceiling, before the action runs.
//
// Tenant resolution: handlers registered under /tenants/{tenant_id}/...
// get the tenant from the route; other routes may place it in the
// request context via TenantContextMiddleware. If no tenant can be
// resolved the check is skipped.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/turnstile/pkg/billing"
	"github.com/platinummonkey/turnstile/pkg/observability"
)

type contextKey string

const tenantIDKey contextKey = "tenant_id"

// QuotaMiddleware enforces per-resource quotas for metered actions
type QuotaMiddleware struct {
	billingService billing.Service
	metrics        *observability.Metrics
}

// NewQuotaMiddleware creates a new QuotaMiddleware. Metrics may be nil.
func NewQuotaMiddleware(billingService billing.Service, metrics *observability.Metrics) *QuotaMiddleware {
	return &QuotaMiddleware{billingService: billingService, metrics: metrics}
}

// EnforceQuota rejects the request with 403 when the tenant's counter
// for the resource has reached its ceiling for the current period.
// The metered action itself calls Consume after it succeeds.
func (m *QuotaMiddleware) EnforceQuota(resource billing.ResourceType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := tenantIDFromRequest(r)
			if tenantID == "" {
				next.ServeHTTP(w, r)
				return
			}

			limit, err := m.billingService.GetLimit(tenantID, resource, time.Now().UTC())
			if err != nil {
				if billing.IsNotFound(err) {
					http.Error(w, err.Error(), http.StatusNotFound)
					return
				}
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if limit.CurrentSize >= limit.Limit {
				if m.metrics != nil {
					m.metrics.QuotaDeniedTotal.WithLabelValues(string(resource)).Inc()
				}
				http.Error(w, "quota exceeded for "+string(resource), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TenantContextMiddleware copies the tenant_id route variable into the
// request context for handlers mounted off tenant-scoped subrouters
func TenantContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenantID := mux.Vars(r)["tenant_id"]; tenantID != "" {
			ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func tenantIDFromRequest(r *http.Request) string {
	if tenantID := mux.Vars(r)["tenant_id"]; tenantID != "" {
		return tenantID
	}
	if tenantID, ok := r.Context().Value(tenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}
