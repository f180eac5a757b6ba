package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provisioner materializes usage limit rows for a subscription span.
// It holds no state beyond the injected catalog and repo.
type Provisioner struct {
	catalog Catalog
	limits  UsageLimitRepo
}

// NewProvisioner creates a new Provisioner
func NewProvisioner(catalog Catalog, limits UsageLimitRepo) *Provisioner {
	return &Provisioner{catalog: catalog, limits: limits}
}

// BuildLimits builds one usage limit row per (resource type, period)
// for the span starting at spanStart: catalog rows for the plan crossed
// with the periods of the interval, every counter starting at zero. It
// does not touch storage.
func (p *Provisioner) BuildLimits(sub *Subscription, spanStart time.Time, interval Interval, now time.Time) ([]*UsageLimit, error) {
	planLimits, ok := p.catalog.Limits(sub.Plan)
	if !ok {
		return nil, &Error{Kind: ErrUnknownPlan, Message: fmt.Sprintf("no catalog entry for plan %q", sub.Plan)}
	}

	periods := ComputePeriods(spanStart, interval)

	rows := make([]*UsageLimit, 0, len(ResourceTypes)*len(periods))
	for _, period := range periods {
		for _, resource := range ResourceTypes {
			end := period.End
			rows = append(rows, &UsageLimit{
				ID:                  uuid.New().String(),
				TenantID:            sub.TenantID,
				SubscriptionID:      sub.ID,
				Plan:                sub.Plan,
				ResourceType:        resource,
				Limit:               planLimits[resource],
				CurrentSize:         0,
				StartDate:           period.Start,
				EndDate:             &end,
				IsYearlyMonthlyPlan: period.YearlySlice,
				MonthlyCycle:        period.MonthlyCycle,
				CreatedAt:           now,
				UpdatedAt:           now,
			})
		}
	}
	return rows, nil
}

// ProvisionLimits builds and inserts the rows for the newly covered
// span in one batch. Callers pass the transaction the subscription
// mutation ran in, so a failed insert rolls both back together.
// Re-provisioning an already covered span is a caller error; the
// lifecycle manager only passes the newly extended span.
func (p *Provisioner) ProvisionLimits(q Querier, sub *Subscription, spanStart time.Time, interval Interval, now time.Time) ([]*UsageLimit, error) {
	rows, err := p.BuildLimits(sub, spanStart, interval, now)
	if err != nil {
		return nil, err
	}
	if err := p.limits.InsertBatch(q, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
