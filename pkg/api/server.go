// Package api exposes the billing engine over HTTP. Authentication
// and request authorization are handled upstream by the platform's
// edge; handlers here trust the tenant id in the route.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/turnstile/pkg/billing"
	"github.com/platinummonkey/turnstile/pkg/cache"
	"github.com/platinummonkey/turnstile/pkg/observability"
)

// Server is the billing HTTP API
type Server struct {
	router         *mux.Router
	billingService billing.Service
	gateway        *billing.GatewayClient
	infoCache      *cache.BillingInfoCache
	metrics        *observability.Metrics
	log            *logrus.Logger
}

// NewServer creates the billing API server. The gateway client, cache
// and metrics are optional; nil disables the corresponding routes or
// instrumentation.
func NewServer(billingService billing.Service, gateway *billing.GatewayClient,
	infoCache *cache.BillingInfoCache, metrics *observability.Metrics, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	s := &Server{
		router:         mux.NewRouter(),
		billingService: billingService,
		gateway:        gateway,
		infoCache:      infoCache,
		metrics:        metrics,
		log:            log,
	}
	s.router.Use(s.requestLogging)
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router so callers can mount extra
// middleware or routes
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	// Subscription lifecycle
	s.router.HandleFunc("/tenants/{tenant_id}/subscription", s.CreateOrRenewSubscription).Methods("POST")
	s.router.HandleFunc("/tenants/{tenant_id}/subscription", s.GetActiveSubscription).Methods("GET")
	s.router.HandleFunc("/tenants/{tenant_id}/subscriptions", s.ListSubscriptions).Methods("GET")
	s.router.HandleFunc("/subscriptions/{id}", s.GetSubscription).Methods("GET")
	s.router.HandleFunc("/subscriptions/{id}", s.UpdateSubscription).Methods("PUT")
	s.router.HandleFunc("/subscriptions/{id}", s.DeleteSubscription).Methods("DELETE")

	// Billing info and quotas
	s.router.HandleFunc("/tenants/{tenant_id}/billing-info", s.GetBillingInfo).Methods("GET")
	s.router.HandleFunc("/tenants/{tenant_id}/limits/{resource}", s.GetLimit).Methods("GET")
	s.router.HandleFunc("/tenants/{tenant_id}/limits/{resource}/consume", s.Consume).Methods("POST")
	s.router.HandleFunc("/usage-limits/{id}", s.UpdateUsageLimit).Methods("PUT")
	s.router.HandleFunc("/usage-limits/{id}", s.DeleteUsageLimit).Methods("DELETE")

	// External gateway passthrough
	if s.gateway != nil {
		s.router.HandleFunc("/tenants/{tenant_id}/payment-link", s.GetPaymentLink).Methods("GET")
		s.router.HandleFunc("/tenants/{tenant_id}/model-provider-payment-link", s.GetModelProviderPaymentLink).Methods("GET")
		s.router.HandleFunc("/tenants/{tenant_id}/invoices", s.GetInvoices).Methods("GET")
	}
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   recorder.status,
			"duration": duration.String(),
		}).Debug("request served")

		if s.metrics != nil {
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			s.metrics.ObserveHTTPRequest(r.Method, route, recorder.status, duration)
		}
	})
}
