package tenants

import "time"

// TenantStatus represents tenant status
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusArchived  TenantStatus = "archived"
)

// Tenant represents a billing-relevant organizational unit. The
// billing engine does not own tenants; it only checks they exist
// before mutating subscription state.
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Service defines the interface for the tenant directory
type Service interface {
	Exists(id string) (bool, error)
	Get(id string) (*Tenant, error)
	Create(tenant *Tenant) error
	List() ([]*Tenant, error)
}
