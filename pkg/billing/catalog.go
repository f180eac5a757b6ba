package billing

// Catalog maps (plan, resource type) to the quota ceiling for one
// billing period. It is immutable configuration: loaded once at
// construction time and injected into the services that need it.
type Catalog map[Plan]map[ResourceType]int64

// Limits returns the full per-resource limit set for a plan
func (c Catalog) Limits(plan Plan) (map[ResourceType]int64, bool) {
	limits, ok := c[plan]
	return limits, ok
}

// Limit returns the ceiling for a single (plan, resource) pair
func (c Catalog) Limit(plan Plan, resource ResourceType) (int64, bool) {
	limits, ok := c[plan]
	if !ok {
		return 0, false
	}
	limit, ok := limits[resource]
	return limit, ok
}

// DefaultCatalog returns the built-in per-plan resource limits
func DefaultCatalog() Catalog {
	return Catalog{
		PlanSandbox: {
			ResourceMembers:              1,
			ResourceApps:                 10,
			ResourceVectorSpace:          10,
			ResourceDocumentsUploadQuota: 50,
			ResourceAnnotationQuota:      10,
			ResourceCredits:              50,
		},
		PlanProfessional: {
			ResourceMembers:              3,
			ResourceApps:                 50,
			ResourceVectorSpace:          200,
			ResourceDocumentsUploadQuota: 500,
			ResourceAnnotationQuota:      2000,
			ResourceCredits:              2000,
		},
		PlanTeam: {
			ResourceMembers:              1000,
			ResourceApps:                 1000,
			ResourceVectorSpace:          1024,
			ResourceDocumentsUploadQuota: 100000,
			ResourceAnnotationQuota:      10000,
			ResourceCredits:              10000,
		},
	}
}

// DefaultEntitlements returns the feature flags snapshotted onto new
// subscription rows for a plan
func DefaultEntitlements(plan Plan) Entitlements {
	switch plan {
	case PlanProfessional:
		return Entitlements{DocsProcessing: true, CanReplaceLogo: true}
	case PlanTeam:
		return Entitlements{DocsProcessing: true, CanReplaceLogo: true, ModelLoadBalancingEnabled: true}
	default:
		return Entitlements{}
	}
}
