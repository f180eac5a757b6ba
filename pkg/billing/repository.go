package billing

import (
	"database/sql"
	"time"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository methods accept it so the lifecycle manager can run a read
// and the dependent writes inside a single transaction.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// SubscriptionRepo is the persistence abstraction for subscription rows
type SubscriptionRepo interface {
	Insert(q Querier, sub *Subscription) error
	GetByID(q Querier, id string) (*Subscription, error)
	ListByTenant(q Querier, tenantID string) ([]*Subscription, error)

	// FindActivePaid returns the tenant's non-sandbox subscription whose
	// [start_date, end_date) span contains asOf, or (nil, nil) when none
	// exists. At most one such row exists per tenant.
	FindActivePaid(q Querier, tenantID string, asOf time.Time) (*Subscription, error)

	// ExtendEndDate moves a subscription's end_date forward in place.
	// Used for same-plan renewal; periods stack back to back.
	ExtendEndDate(q Querier, id string, end, updatedAt time.Time) error

	// ListExpiringBefore returns paid subscriptions whose end_date falls
	// in [asOf, before).
	ListExpiringBefore(q Querier, asOf, before time.Time) ([]*Subscription, error)

	Update(q Querier, id string, upd *SubscriptionUpdate, updatedAt time.Time) error
	Delete(q Querier, id string) error
}

// UsageLimitRepo is the persistence abstraction for usage limit rows
type UsageLimitRepo interface {
	// InsertBatch inserts all rows in one logical batch. Callers run it
	// inside a transaction so a period is never partially provisioned.
	InsertBatch(q Querier, limits []*UsageLimit) error

	GetByID(q Querier, id string) (*UsageLimit, error)
	ListBySubscription(q Querier, subscriptionID string) ([]*UsageLimit, error)

	// FindCovering returns the row for (subscription, resource) whose
	// [start_date, end_date) period contains asOf, or (nil, nil).
	FindCovering(q Querier, subscriptionID string, resource ResourceType, asOf time.Time) (*UsageLimit, error)

	// ListCovering returns one row per resource type for the period
	// containing asOf.
	ListCovering(q Querier, subscriptionID string, asOf time.Time) ([]*UsageLimit, error)

	// AddToCurrentSize atomically adds delta to the covering row's
	// consumption counter and returns the updated row, or (nil, nil)
	// when no row covers asOf.
	AddToCurrentSize(q Querier, subscriptionID string, resource ResourceType, asOf time.Time, delta int64) (*UsageLimit, error)

	Update(q Querier, id string, upd *UsageLimitUpdate, updatedAt time.Time) error
	Delete(q Querier, id string) error
}
