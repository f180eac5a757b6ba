package billing

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/turnstile/pkg/observability"
	"github.com/platinummonkey/turnstile/pkg/tenants"
)

// Service defines the interface for subscription lifecycle and quota
// operations
type Service interface {
	// Subscription lifecycle
	CreateOrRenewSubscription(tenantID string, plan Plan, interval Interval) (*Subscription, error)
	GetActiveSubscription(tenantID string) (*ActiveSubscription, error)
	GetSubscription(id string) (*Subscription, error)
	GetSubscriptionWithLimits(id string) (*SubscriptionWithLimits, error)
	ListSubscriptions(tenantID string) ([]*Subscription, error)
	UpdateSubscription(id string, upd *SubscriptionUpdate) (*Subscription, error)
	DeleteSubscription(id string) error

	// Read-only composition for the billing HTTP resource
	GetBillingInfo(tenantID string) (*BillingInfo, error)

	// Quota reads and writes
	GetLimit(tenantID string, resource ResourceType, asOf time.Time) (*UsageLimit, error)
	Consume(tenantID string, resource ResourceType, amount int64, asOf time.Time) (*UsageLimit, error)
	UpdateUsageLimit(id string, upd *UsageLimitUpdate) (*UsageLimit, error)
	DeleteUsageLimit(id string) error
}

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db            *sql.DB
	subscriptions SubscriptionRepo
	usageLimits   UsageLimitRepo
	provisioner   *Provisioner
	catalog       Catalog
	tenantService tenants.Service
	log           *observability.Logger
	metrics       *observability.Metrics

	now func() time.Time
}

// NewPostgresService creates a new PostgresService. The catalog is
// immutable configuration; metrics may be nil.
func NewPostgresService(db *sql.DB, catalog Catalog, tenantService tenants.Service,
	log *observability.Logger, metrics *observability.Metrics) *PostgresService {
	limits := NewPostgresUsageLimitRepo()
	return &PostgresService{
		db:            db,
		subscriptions: NewPostgresSubscriptionRepo(),
		usageLimits:   limits,
		provisioner:   NewProvisioner(catalog, limits),
		catalog:       catalog,
		tenantService: tenantService,
		log:           log,
		metrics:       metrics,
		now:           time.Now,
	}
}

func (s *PostgresService) requireTenant(tenantID string) error {
	exists, err := s.tenantService.Exists(tenantID)
	if err != nil {
		return fmt.Errorf("failed to check tenant: %w", err)
	}
	if !exists {
		return &Error{Kind: ErrTenantNotFound, Message: "tenant not found"}
	}
	return nil
}

// CreateOrRenewSubscription creates a new subscription or extends a
// same-plan renewal. The read of the currently active subscription and
// the dependent insert/extend run in one transaction, serialized per
// tenant with an advisory lock so concurrent renewals cannot race each
// other into two overlapping paid rows.
func (s *PostgresService) CreateOrRenewSubscription(tenantID string, plan Plan, interval Interval) (*Subscription, error) {
	if !ValidPlan(plan) {
		return nil, &Error{Kind: ErrInvalidPlan, Message: fmt.Sprintf("invalid subscription plan %q", plan)}
	}
	if !ValidInterval(interval) {
		return nil, &Error{Kind: ErrInvalidInterval, Message: fmt.Sprintf("invalid subscription interval %q", interval)}
	}
	if err := s.requireTenant(tenantID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1))`, tenantID); err != nil {
		return nil, fmt.Errorf("failed to lock tenant: %w", err)
	}

	now := s.now().UTC()
	var sub *Subscription

	if plan == PlanSandbox {
		// Sandbox is always newly inserted, never reused, and never
		// expires. Quota reads for sandbox tenants synthesize limits
		// from the catalog, so no usage limit rows are provisioned.
		sub = s.newSubscription(tenantID, plan, interval, now, nil)
		if err := s.subscriptions.Insert(tx, sub); err != nil {
			return nil, err
		}
	} else {
		existing, err := s.subscriptions.FindActivePaid(tx, tenantID, now)
		if err != nil {
			return nil, err
		}

		switch {
		case existing != nil && existing.Plan != plan:
			return nil, &Error{
				Kind: ErrPlanConflict,
				Message: fmt.Sprintf("tenant already has an active %s subscription; "+
					"it must lapse before switching to %s", existing.Plan, plan),
			}

		case existing != nil:
			// Same-plan renewal: the new span starts where the current
			// one ends, and end_date is extended in place.
			spanStart := *existing.EndDate
			newEnd := spanStart.Add(PeriodLength(interval))
			if err := s.subscriptions.ExtendEndDate(tx, existing.ID, newEnd, now); err != nil {
				return nil, err
			}
			existing.EndDate = &newEnd
			existing.UpdatedAt = now
			sub = existing

			if _, err := s.provisioner.ProvisionLimits(tx, sub, spanStart, interval, now); err != nil {
				return nil, err
			}

		default:
			end := now.Add(PeriodLength(interval))
			sub = s.newSubscription(tenantID, plan, interval, now, &end)
			if err := s.subscriptions.Insert(tx, sub); err != nil {
				return nil, err
			}
			if _, err := s.provisioner.ProvisionLimits(tx, sub, now, interval, now); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit subscription: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"tenant_id": tenantID,
		"plan":      string(plan),
		"interval":  string(interval),
	}).Info("subscription created or renewed")
	if s.metrics != nil {
		s.metrics.SubscriptionOpsTotal.WithLabelValues("create_or_renew", string(plan)).Inc()
	}

	return sub, nil
}

func (s *PostgresService) newSubscription(tenantID string, plan Plan, interval Interval, now time.Time, end *time.Time) *Subscription {
	entitlements := DefaultEntitlements(plan)
	return &Subscription{
		ID:                        uuid.New().String(),
		TenantID:                  tenantID,
		Plan:                      plan,
		Interval:                  interval,
		DocsProcessing:            entitlements.DocsProcessing,
		CanReplaceLogo:            entitlements.CanReplaceLogo,
		ModelLoadBalancingEnabled: entitlements.ModelLoadBalancingEnabled,
		StartDate:                 now,
		EndDate:                   end,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

// GetActiveSubscription returns the paid subscription covering now, or
// a synthesized sandbox fallback for tenants with none. The fallback
// is never persisted and carries no ID.
func (s *PostgresService) GetActiveSubscription(tenantID string) (*ActiveSubscription, error) {
	if err := s.requireTenant(tenantID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sub, err := s.subscriptions.FindActivePaid(s.db, tenantID, now)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		return &ActiveSubscription{Subscription: sub}, nil
	}

	entitlements := DefaultEntitlements(PlanSandbox)
	return &ActiveSubscription{
		Synthetic: true,
		Subscription: &Subscription{
			TenantID:                  tenantID,
			Plan:                      PlanSandbox,
			DocsProcessing:            entitlements.DocsProcessing,
			CanReplaceLogo:            entitlements.CanReplaceLogo,
			ModelLoadBalancingEnabled: entitlements.ModelLoadBalancingEnabled,
			StartDate:                 now,
		},
	}, nil
}

// GetSubscription retrieves a subscription by ID
func (s *PostgresService) GetSubscription(id string) (*Subscription, error) {
	return s.subscriptions.GetByID(s.db, id)
}

// GetSubscriptionWithLimits retrieves a subscription together with all
// usage limit rows provisioned for it
func (s *PostgresService) GetSubscriptionWithLimits(id string) (*SubscriptionWithLimits, error) {
	sub, err := s.subscriptions.GetByID(s.db, id)
	if err != nil {
		return nil, err
	}
	limits, err := s.usageLimits.ListBySubscription(s.db, id)
	if err != nil {
		return nil, err
	}
	return &SubscriptionWithLimits{Subscription: sub, Limits: limits}, nil
}

// ListSubscriptions lists all subscription rows for a tenant
func (s *PostgresService) ListSubscriptions(tenantID string) ([]*Subscription, error) {
	if err := s.requireTenant(tenantID); err != nil {
		return nil, err
	}
	return s.subscriptions.ListByTenant(s.db, tenantID)
}

// UpdateSubscription applies an allow-listed partial update and returns
// the updated row
func (s *PostgresService) UpdateSubscription(id string, upd *SubscriptionUpdate) (*Subscription, error) {
	if upd.Plan != nil && !ValidPlan(*upd.Plan) {
		return nil, &Error{Kind: ErrInvalidPlan, Message: fmt.Sprintf("invalid subscription plan %q", *upd.Plan)}
	}
	if upd.Interval != nil && !ValidInterval(*upd.Interval) {
		return nil, &Error{Kind: ErrInvalidInterval, Message: fmt.Sprintf("invalid subscription interval %q", *upd.Interval)}
	}

	now := s.now().UTC()
	if err := s.subscriptions.Update(s.db, id, upd, now); err != nil {
		return nil, err
	}

	s.log.WithField("subscription_id", id).Info("subscription updated")
	if s.metrics != nil {
		s.metrics.SubscriptionOpsTotal.WithLabelValues("update", "").Inc()
	}
	return s.subscriptions.GetByID(s.db, id)
}

// DeleteSubscription hard-deletes a subscription row. It does not
// cascade to usage limit rows.
func (s *PostgresService) DeleteSubscription(id string) error {
	if err := s.subscriptions.Delete(s.db, id); err != nil {
		return err
	}
	s.log.WithField("subscription_id", id).Info("subscription deleted")
	if s.metrics != nil {
		s.metrics.SubscriptionOpsTotal.WithLabelValues("delete", "").Inc()
	}
	return nil
}

// GetBillingInfo composes the active subscription and its current
// usage limit rows into the shape the billing HTTP resource returns.
// Resources the plan meters but that have no row yet fall back to the
// catalog ceiling with zero consumption.
func (s *PostgresService) GetBillingInfo(tenantID string) (*BillingInfo, error) {
	active, err := s.GetActiveSubscription(tenantID)
	if err != nil {
		return nil, err
	}
	sub := active.Subscription

	resources := make(map[ResourceType]ResourceUsage, len(ResourceTypes))
	planLimits, ok := s.catalog.Limits(sub.Plan)
	if !ok {
		return nil, &Error{Kind: ErrUnknownPlan, Message: fmt.Sprintf("no catalog entry for plan %q", sub.Plan)}
	}
	for _, resource := range ResourceTypes {
		resources[resource] = ResourceUsage{Limit: planLimits[resource]}
	}

	if active.Persisted() {
		rows, err := s.usageLimits.ListCovering(s.db, sub.ID, s.now().UTC())
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			resources[row.ResourceType] = ResourceUsage{Limit: row.Limit, Size: row.CurrentSize}
		}
	}

	return &BillingInfo{
		Enabled:                   true,
		Plan:                      sub.Plan,
		Interval:                  sub.Interval,
		ExpireTime:                sub.EndDate,
		Resources:                 resources,
		DocsProcessing:            sub.DocsProcessing,
		CanReplaceLogo:            sub.CanReplaceLogo,
		ModelLoadBalancingEnabled: sub.ModelLoadBalancingEnabled,
	}, nil
}
