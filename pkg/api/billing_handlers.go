package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/turnstile/pkg/billing"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusForError maps billing error kinds to HTTP status codes.
// Storage errors and other unknown failures map to 500.
func statusForError(err error) int {
	switch billing.KindOf(err) {
	case billing.ErrTenantNotFound, billing.ErrSubscriptionNotFound, billing.ErrUsageLimitNotFound:
		return http.StatusNotFound
	case billing.ErrInvalidPlan, billing.ErrInvalidInterval, billing.ErrInvalidField, billing.ErrResourceNotMetered:
		return http.StatusBadRequest
	case billing.ErrPlanConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	body := map[string]interface{}{"error": err.Error()}
	if kind := billing.KindOf(err); kind != "" {
		body["kind"] = string(kind)
	}
	writeJSON(w, status, body)
}

func (s *Server) invalidateBillingInfo(r *http.Request, tenantID string) {
	if s.infoCache == nil || tenantID == "" {
		return
	}
	if err := s.infoCache.Invalidate(r.Context(), tenantID); err != nil {
		s.log.WithError(err).Warn("failed to invalidate billing info cache")
	}
}

// CreateOrRenewSubscription applies a plan purchase or renewal. The
// external gateway has already collected payment; the handler refuses
// to mutate anything unless the redirect carries payment_status=success.
func (s *Server) CreateOrRenewSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]

	if paymentStatus := r.URL.Query().Get("payment_status"); paymentStatus != "success" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"result": false,
			"error":  "invalid payment status: " + paymentStatus,
		})
		return
	}

	plan := billing.Plan(r.URL.Query().Get("plan"))
	interval := billing.Interval(r.URL.Query().Get("interval"))

	sub, err := s.billingService.CreateOrRenewSubscription(tenantID, plan, interval)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.invalidateBillingInfo(r, tenantID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":          true,
		"message":         "subscription updated successfully",
		"subscription_id": sub.ID,
	})
}

// GetActiveSubscription returns the subscription covering now, which
// may be the synthesized sandbox fallback
func (s *Server) GetActiveSubscription(w http.ResponseWriter, r *http.Request) {
	active, err := s.billingService.GetActiveSubscription(mux.Vars(r)["tenant_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, active)
}

// ListSubscriptions lists all subscription rows for a tenant
func (s *Server) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.billingService.ListSubscriptions(mux.Vars(r)["tenant_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetSubscription retrieves a subscription by ID. With include=limits
// the response also carries every usage limit row provisioned for it.
func (s *Server) GetSubscription(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if r.URL.Query().Get("include") == "limits" {
		sub, err := s.billingService.GetSubscriptionWithLimits(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
		return
	}

	sub, err := s.billingService.GetSubscription(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// UpdateSubscription applies an allow-listed partial update
func (s *Server) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	upd, err := billing.ParseSubscriptionUpdate(body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sub, err := s.billingService.UpdateSubscription(mux.Vars(r)["id"], upd)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.invalidateBillingInfo(r, sub.TenantID)
	writeJSON(w, http.StatusOK, sub)
}

// DeleteSubscription hard-deletes a subscription row
func (s *Server) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.billingService.DeleteSubscription(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBillingInfo returns the composed plan + usage view, served from
// cache when possible
func (s *Server) GetBillingInfo(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]

	if s.infoCache != nil {
		if info, err := s.infoCache.Get(r.Context(), tenantID); err != nil {
			s.log.WithError(err).Warn("billing info cache read failed")
		} else if info != nil {
			writeJSON(w, http.StatusOK, info)
			return
		}
	}

	info, err := s.billingService.GetBillingInfo(tenantID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.infoCache != nil {
		if err := s.infoCache.Set(r.Context(), tenantID, info); err != nil {
			s.log.WithError(err).Warn("billing info cache write failed")
		}
	}
	writeJSON(w, http.StatusOK, info)
}

// GetLimit returns the usage limit covering now for one resource
func (s *Server) GetLimit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	limit, err := s.billingService.GetLimit(vars["tenant_id"],
		billing.ResourceType(vars["resource"]), time.Now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, limit)
}

type consumeRequest struct {
	Amount int64 `json:"amount"`
}

// Consume records consumption against a resource's current period
func (s *Server) Consume(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	req := consumeRequest{Amount: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	limit, err := s.billingService.Consume(vars["tenant_id"],
		billing.ResourceType(vars["resource"]), req.Amount, time.Now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.invalidateBillingInfo(r, vars["tenant_id"])
	writeJSON(w, http.StatusOK, limit)
}

// UpdateUsageLimit applies an allow-listed partial update to a usage
// limit row
func (s *Server) UpdateUsageLimit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	upd, err := billing.ParseUsageLimitUpdate(body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	limit, err := s.billingService.UpdateUsageLimit(mux.Vars(r)["id"], upd)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.invalidateBillingInfo(r, limit.TenantID)
	writeJSON(w, http.StatusOK, limit)
}

// DeleteUsageLimit hard-deletes a usage limit row
func (s *Server) DeleteUsageLimit(w http.ResponseWriter, r *http.Request) {
	if err := s.billingService.DeleteUsageLimit(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPaymentLink fetches the checkout link from the external gateway
func (s *Server) GetPaymentLink(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	body, err := s.gateway.PaymentLink(
		billing.Plan(query.Get("plan")),
		billing.Interval(query.Get("interval")),
		query.Get("prefilled_email"),
		mux.Vars(r)["tenant_id"],
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// GetModelProviderPaymentLink fetches the model provider checkout link
func (s *Server) GetModelProviderPaymentLink(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	body, err := s.gateway.ModelProviderPaymentLink(
		query.Get("provider_name"),
		mux.Vars(r)["tenant_id"],
		query.Get("account_id"),
		query.Get("prefilled_email"),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// GetInvoices fetches invoice data from the external gateway
func (s *Server) GetInvoices(w http.ResponseWriter, r *http.Request) {
	body, err := s.gateway.Invoices(r.URL.Query().Get("prefilled_email"), mux.Vars(r)["tenant_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
