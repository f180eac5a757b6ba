package billing

import (
	"encoding/json"
	"time"
)

// Plan represents a subscription plan tier
type Plan string

const (
	PlanSandbox      Plan = "sandbox"
	PlanProfessional Plan = "professional"
	PlanTeam         Plan = "team"
)

// ValidPlan reports whether p is one of the recognized plans
func ValidPlan(p Plan) bool {
	switch p {
	case PlanSandbox, PlanProfessional, PlanTeam:
		return true
	}
	return false
}

// Interval represents the billing cadence of a paid plan
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// ValidInterval reports whether i is one of the recognized intervals
func ValidInterval(i Interval) bool {
	return i == IntervalMonth || i == IntervalYear
}

// ResourceType represents a metered resource dimension
type ResourceType string

const (
	ResourceMembers              ResourceType = "members"
	ResourceApps                 ResourceType = "apps"
	ResourceVectorSpace          ResourceType = "vector_space"
	ResourceDocumentsUploadQuota ResourceType = "documents_upload_quota"
	ResourceAnnotationQuota      ResourceType = "annotation_quota"
	ResourceCredits              ResourceType = "credits"
)

// ResourceTypes lists every metered resource in catalog order
var ResourceTypes = []ResourceType{
	ResourceMembers,
	ResourceApps,
	ResourceVectorSpace,
	ResourceDocumentsUploadQuota,
	ResourceAnnotationQuota,
	ResourceCredits,
}

// Entitlements are plan-derived feature flags snapshotted onto a
// subscription row at creation time. They are never recomputed later.
type Entitlements struct {
	DocsProcessing            bool `json:"docs_processing"`
	CanReplaceLogo            bool `json:"can_replace_logo"`
	ModelLoadBalancingEnabled bool `json:"model_load_balancing_enabled"`
}

// Subscription represents a tenant's subscription row
type Subscription struct {
	ID                        string     `json:"id"`
	TenantID                  string     `json:"tenant_id"`
	Plan                      Plan       `json:"plan"`
	Interval                  Interval   `json:"interval"`
	DocsProcessing            bool       `json:"docs_processing"`
	CanReplaceLogo            bool       `json:"can_replace_logo"`
	ModelLoadBalancingEnabled bool       `json:"model_load_balancing_enabled"`
	StartDate                 time.Time  `json:"start_date"`
	EndDate                   *time.Time `json:"end_date,omitempty"` // nil for sandbox (never expires)
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the subscription covers the given instant.
// A nil end date means perpetual coverage.
func (s *Subscription) ActiveAt(t time.Time) bool {
	if t.Before(s.StartDate) {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(t)
}

// ActiveSubscription is either a persisted subscription row or the
// synthesized sandbox fallback for tenants with no active paid plan.
// The synthetic variant carries no ID and must never be updated,
// deleted, or otherwise treated as persisted.
type ActiveSubscription struct {
	Subscription *Subscription `json:"subscription"`
	Synthetic    bool          `json:"synthetic"`
}

// Persisted reports whether the active subscription is a real row
func (a *ActiveSubscription) Persisted() bool {
	return !a.Synthetic
}

// SubscriptionWithLimits pairs a subscription with every usage limit
// row provisioned for it
type SubscriptionWithLimits struct {
	Subscription *Subscription `json:"subscription"`
	Limits       []*UsageLimit `json:"limits"`
}

// UsageLimit represents the quota ceiling and consumption counter for
// one resource type within one billing period
type UsageLimit struct {
	ID                  string       `json:"id"`
	TenantID            string       `json:"tenant_id"`
	SubscriptionID      string       `json:"subscription_id"`
	Plan                Plan         `json:"plan"`
	ResourceType        ResourceType `json:"resource_type"`
	Limit               int64        `json:"limit"`
	CurrentSize         int64        `json:"current_size"`
	StartDate           time.Time    `json:"start_date"`
	EndDate             *time.Time   `json:"end_date,omitempty"`
	IsYearlyMonthlyPlan bool         `json:"is_yearly_monthly_plan"`
	MonthlyCycle        int          `json:"monthly_cycle,omitempty"` // 1..12 when IsYearlyMonthlyPlan
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// SubscriptionUpdate is the allow-listed partial update for a
// subscription. Nil fields are left untouched.
type SubscriptionUpdate struct {
	Plan                      *Plan      `json:"plan,omitempty"`
	Interval                  *Interval  `json:"interval,omitempty"`
	DocsProcessing            *bool      `json:"docs_processing,omitempty"`
	CanReplaceLogo            *bool      `json:"can_replace_logo,omitempty"`
	ModelLoadBalancingEnabled *bool      `json:"model_load_balancing_enabled,omitempty"`
	EndDate                   *time.Time `json:"end_date,omitempty"`
}

// Empty reports whether the update carries no fields
func (u *SubscriptionUpdate) Empty() bool {
	return u.Plan == nil && u.Interval == nil && u.DocsProcessing == nil &&
		u.CanReplaceLogo == nil && u.ModelLoadBalancingEnabled == nil && u.EndDate == nil
}

// UsageLimitUpdate is the allow-listed partial update for a usage limit
type UsageLimitUpdate struct {
	ResourceType *ResourceType `json:"resource_type,omitempty"`
	Limit        *int64        `json:"limit,omitempty"`
	CurrentSize  *int64        `json:"current_size,omitempty"`
}

// Empty reports whether the update carries no fields
func (u *UsageLimitUpdate) Empty() bool {
	return u.ResourceType == nil && u.Limit == nil && u.CurrentSize == nil
}

// ParseSubscriptionUpdate decodes a JSON object into a
// SubscriptionUpdate, rejecting any key outside the allow list with an
// InvalidField error.
func ParseSubscriptionUpdate(raw []byte) (*SubscriptionUpdate, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &Error{Kind: ErrInvalidField, Message: "malformed update body"}
	}
	allowed := map[string]bool{
		"plan": true, "interval": true, "docs_processing": true,
		"can_replace_logo": true, "model_load_balancing_enabled": true,
		"end_date": true,
	}
	for field := range fields {
		if !allowed[field] {
			return nil, &Error{Kind: ErrInvalidField, Message: "invalid field: " + field}
		}
	}
	upd := &SubscriptionUpdate{}
	if err := json.Unmarshal(raw, upd); err != nil {
		return nil, &Error{Kind: ErrInvalidField, Message: "malformed update body"}
	}
	return upd, nil
}

// ParseUsageLimitUpdate decodes a JSON object into a UsageLimitUpdate,
// rejecting any key outside the allow list with an InvalidField error.
func ParseUsageLimitUpdate(raw []byte) (*UsageLimitUpdate, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &Error{Kind: ErrInvalidField, Message: "malformed update body"}
	}
	allowed := map[string]bool{
		"resource_type": true, "limit": true, "current_size": true,
	}
	for field := range fields {
		if !allowed[field] {
			return nil, &Error{Kind: ErrInvalidField, Message: "invalid field: " + field}
		}
	}
	upd := &UsageLimitUpdate{}
	if err := json.Unmarshal(raw, upd); err != nil {
		return nil, &Error{Kind: ErrInvalidField, Message: "malformed update body"}
	}
	return upd, nil
}

// ResourceUsage pairs a quota ceiling with its current consumption
type ResourceUsage struct {
	Limit int64 `json:"limit"`
	Size  int64 `json:"size"`
}

// BillingInfo is the read-only composition returned to the billing
// HTTP resource: active plan, entitlements, and the per-resource
// {limit, size} table with catalog defaults filled in.
type BillingInfo struct {
	Enabled                   bool                           `json:"enabled"`
	Plan                      Plan                           `json:"plan"`
	Interval                  Interval                       `json:"interval,omitempty"`
	ExpireTime                *time.Time                     `json:"expire_time,omitempty"`
	Resources                 map[ResourceType]ResourceUsage `json:"resources"`
	DocsProcessing            bool                           `json:"docs_processing"`
	CanReplaceLogo            bool                           `json:"can_replace_logo"`
	ModelLoadBalancingEnabled bool                           `json:"model_load_balancing_enabled"`
}
