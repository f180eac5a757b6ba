// Package billing implements the subscription lifecycle and
// usage-quota engine for the Turnstile multi-tenant billing core.
//
// # Overview
//
// The package decides which subscription plan is active for a tenant,
// slices paid subscriptions into quota-enforcement periods, provisions
// per-resource usage limits for those periods, and tracks consumption
// against them.
//
// # Plans
//
// Sandbox (free):
//   - Perpetual, never expires
//   - Always available as a fallback: tenants with no active paid
//     subscription are served a synthesized sandbox subscription
//
// Professional / Team (paid):
//   - Billed monthly (one 30-day period) or yearly (twelve contiguous
//     30-day slices)
//   - At most one active paid subscription per tenant; renewing the
//     same plan extends the existing row, periods stacking back to back
//
// # Usage Example
//
// Purchase or renew after the payment gateway reports success:
//
//	sub, err := service.CreateOrRenewSubscription(tenantID, billing.PlanProfessional, billing.IntervalMonth)
//
// Meter an action:
//
//	limit, err := service.GetLimit(tenantID, billing.ResourceApps, time.Now())
//	if limit.CurrentSize >= limit.Limit {
//		return errors.New("upgrade plan to create more apps")
//	}
//	service.Consume(tenantID, billing.ResourceApps, 1, time.Now())
//
// # Related Packages
//
//   - pkg/tenants: tenant directory consulted before any mutation
//   - pkg/middleware: HTTP quota admission control
package billing
