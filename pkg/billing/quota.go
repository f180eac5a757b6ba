package billing

import (
	"fmt"
	"time"
)

// GetLimit resolves the tenant's active subscription at asOf and
// returns the usage limit row covering that instant for the resource.
// When the active subscription is the synthesized sandbox fallback the
// row is built from the catalog with zero consumption instead of
// querying storage.
func (s *PostgresService) GetLimit(tenantID string, resource ResourceType, asOf time.Time) (*UsageLimit, error) {
	active, err := s.GetActiveSubscription(tenantID)
	if err != nil {
		return nil, err
	}
	sub := active.Subscription

	ceiling, ok := s.catalog.Limit(sub.Plan, resource)
	if !ok {
		return nil, &Error{
			Kind:    ErrResourceNotMetered,
			Message: fmt.Sprintf("resource %q is not metered for plan %q", resource, sub.Plan),
		}
	}

	if active.Synthetic {
		return s.syntheticLimit(sub, resource, ceiling), nil
	}

	row, err := s.usageLimits.FindCovering(s.db, sub.ID, resource, asOf)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &Error{
			Kind:    ErrUsageLimitNotFound,
			Message: fmt.Sprintf("no usage limit covers %s for resource %q", asOf.Format(time.RFC3339), resource),
		}
	}
	return row, nil
}

// Consume adds amount to the covering row's consumption counter and
// returns the result. The write is never refused when the counter
// crosses the ceiling; admission policy belongs to the caller, which
// checks current_size against the limit before admitting the action.
func (s *PostgresService) Consume(tenantID string, resource ResourceType, amount int64, asOf time.Time) (*UsageLimit, error) {
	active, err := s.GetActiveSubscription(tenantID)
	if err != nil {
		return nil, err
	}
	sub := active.Subscription

	ceiling, ok := s.catalog.Limit(sub.Plan, resource)
	if !ok {
		return nil, &Error{
			Kind:    ErrResourceNotMetered,
			Message: fmt.Sprintf("resource %q is not metered for plan %q", resource, sub.Plan),
		}
	}

	if active.Synthetic {
		// Nothing durable backs the sandbox fallback; consumption
		// against it is not tracked between calls.
		row := s.syntheticLimit(sub, resource, ceiling)
		row.CurrentSize = amount
		return row, nil
	}

	row, err := s.usageLimits.AddToCurrentSize(s.db, sub.ID, resource, asOf, amount)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &Error{
			Kind:    ErrUsageLimitNotFound,
			Message: fmt.Sprintf("no usage limit covers %s for resource %q", asOf.Format(time.RFC3339), resource),
		}
	}

	if s.metrics != nil {
		s.metrics.QuotaConsumptionTotal.WithLabelValues(string(resource)).Add(float64(amount))
	}
	return row, nil
}

// UpdateUsageLimit applies an allow-listed partial update and returns
// the updated row
func (s *PostgresService) UpdateUsageLimit(id string, upd *UsageLimitUpdate) (*UsageLimit, error) {
	now := s.now().UTC()
	if err := s.usageLimits.Update(s.db, id, upd, now); err != nil {
		return nil, err
	}
	s.log.WithField("usage_limit_id", id).Info("usage limit updated")
	return s.usageLimits.GetByID(s.db, id)
}

// DeleteUsageLimit hard-deletes a usage limit row
func (s *PostgresService) DeleteUsageLimit(id string) error {
	if err := s.usageLimits.Delete(s.db, id); err != nil {
		return err
	}
	s.log.WithField("usage_limit_id", id).Info("usage limit deleted")
	return nil
}

func (s *PostgresService) syntheticLimit(sub *Subscription, resource ResourceType, ceiling int64) *UsageLimit {
	return &UsageLimit{
		TenantID:     sub.TenantID,
		Plan:         sub.Plan,
		ResourceType: resource,
		Limit:        ceiling,
		CurrentSize:  0,
		StartDate:    sub.StartDate,
	}
}
