package billing

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Column lists are shared between single-row scans and list scans so
// the two cannot drift apart.
const subscriptionColumns = `id, tenant_id, plan, "interval", docs_processing, can_replace_logo,
	       model_load_balancing_enabled, start_date, end_date, created_at, updated_at`

const usageLimitColumns = `id, tenant_id, subscription_id, plan, resource_type, "limit", current_size,
	       start_date, end_date, is_yearly_monthly_plan, monthly_cycle, created_at, updated_at`

// PostgresSubscriptionRepo implements SubscriptionRepo against the
// subscriptions table
type PostgresSubscriptionRepo struct{}

// NewPostgresSubscriptionRepo creates a new PostgresSubscriptionRepo
func NewPostgresSubscriptionRepo() *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{}
}

func scanSubscription(row interface {
	Scan(dest ...interface{}) error
}) (*Subscription, error) {
	sub := &Subscription{}
	var endDate sql.NullTime
	err := row.Scan(
		&sub.ID, &sub.TenantID, &sub.Plan, &sub.Interval, &sub.DocsProcessing,
		&sub.CanReplaceLogo, &sub.ModelLoadBalancingEnabled, &sub.StartDate,
		&endDate, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		end := endDate.Time
		sub.EndDate = &end
	}
	return sub, nil
}

// Insert inserts a new subscription row
func (r *PostgresSubscriptionRepo) Insert(q Querier, sub *Subscription) error {
	query := `
		INSERT INTO subscriptions (id, tenant_id, plan, "interval", docs_processing, can_replace_logo,
		                           model_load_balancing_enabled, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var endDate interface{}
	if sub.EndDate != nil {
		endDate = *sub.EndDate
	}
	_, err := q.Exec(query, sub.ID, sub.TenantID, sub.Plan, sub.Interval,
		sub.DocsProcessing, sub.CanReplaceLogo, sub.ModelLoadBalancingEnabled,
		sub.StartDate, endDate, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// GetByID retrieves a subscription by ID
func (r *PostgresSubscriptionRepo) GetByID(q Querier, id string) (*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(q.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, &Error{Kind: ErrSubscriptionNotFound, Message: "subscription not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// ListByTenant lists all subscription rows for a tenant, newest first
func (r *PostgresSubscriptionRepo) ListByTenant(q Querier, tenantID string) ([]*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE tenant_id = $1 ORDER BY start_date DESC`
	rows, err := q.Query(query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// FindActivePaid returns the non-sandbox subscription with end_date in
// the future, or (nil, nil) when the tenant has none
func (r *PostgresSubscriptionRepo) FindActivePaid(q Querier, tenantID string, asOf time.Time) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE tenant_id = $1 AND plan != $2 AND end_date > $3
		ORDER BY end_date DESC
		LIMIT 1
	`
	sub, err := scanSubscription(q.QueryRow(query, tenantID, PlanSandbox, asOf))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return sub, nil
}

// ExtendEndDate moves a subscription's end_date forward in place
func (r *PostgresSubscriptionRepo) ExtendEndDate(q Querier, id string, end, updatedAt time.Time) error {
	query := `UPDATE subscriptions SET end_date = $1, updated_at = $2 WHERE id = $3`
	result, err := q.Exec(query, end, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to extend subscription: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &Error{Kind: ErrSubscriptionNotFound, Message: "subscription not found"}
	}
	return nil
}

// ListExpiringBefore returns paid subscriptions lapsing in [asOf, before)
func (r *PostgresSubscriptionRepo) ListExpiringBefore(q Querier, asOf, before time.Time) ([]*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE plan != $1 AND end_date >= $2 AND end_date < $3
		ORDER BY end_date ASC
	`
	rows, err := q.Query(query, PlanSandbox, asOf, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Update applies an allow-listed partial update to a subscription row
func (r *PostgresSubscriptionRepo) Update(q Querier, id string, upd *SubscriptionUpdate, updatedAt time.Time) error {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	addClause := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if upd.Plan != nil {
		addClause("plan", *upd.Plan)
	}
	if upd.Interval != nil {
		addClause(`"interval"`, *upd.Interval)
	}
	if upd.DocsProcessing != nil {
		addClause("docs_processing", *upd.DocsProcessing)
	}
	if upd.CanReplaceLogo != nil {
		addClause("can_replace_logo", *upd.CanReplaceLogo)
	}
	if upd.ModelLoadBalancingEnabled != nil {
		addClause("model_load_balancing_enabled", *upd.ModelLoadBalancingEnabled)
	}
	if upd.EndDate != nil {
		addClause("end_date", *upd.EndDate)
	}
	if len(setClauses) == 0 {
		return nil
	}
	addClause("updated_at", updatedAt)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE subscriptions SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argPos)

	result, err := q.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &Error{Kind: ErrSubscriptionNotFound, Message: "subscription not found"}
	}
	return nil
}

// Delete hard-deletes a subscription row. Usage limit rows are left in
// place; cascade cleanup is an external concern.
func (r *PostgresSubscriptionRepo) Delete(q Querier, id string) error {
	result, err := q.Exec(`DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &Error{Kind: ErrSubscriptionNotFound, Message: "subscription not found"}
	}
	return nil
}

// PostgresUsageLimitRepo implements UsageLimitRepo against the
// usage_limits table
type PostgresUsageLimitRepo struct{}

// NewPostgresUsageLimitRepo creates a new PostgresUsageLimitRepo
func NewPostgresUsageLimitRepo() *PostgresUsageLimitRepo {
	return &PostgresUsageLimitRepo{}
}

func scanUsageLimit(row interface {
	Scan(dest ...interface{}) error
}) (*UsageLimit, error) {
	limit := &UsageLimit{}
	var endDate sql.NullTime
	var cycle sql.NullInt64
	err := row.Scan(
		&limit.ID, &limit.TenantID, &limit.SubscriptionID, &limit.Plan,
		&limit.ResourceType, &limit.Limit, &limit.CurrentSize, &limit.StartDate,
		&endDate, &limit.IsYearlyMonthlyPlan, &cycle, &limit.CreatedAt, &limit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		end := endDate.Time
		limit.EndDate = &end
	}
	if cycle.Valid {
		limit.MonthlyCycle = int(cycle.Int64)
	}
	return limit, nil
}

// InsertBatch inserts all rows with a single multi-row statement
func (r *PostgresUsageLimitRepo) InsertBatch(q Querier, limits []*UsageLimit) error {
	if len(limits) == 0 {
		return nil
	}

	const fieldCount = 13
	valueClauses := make([]string, 0, len(limits))
	args := make([]interface{}, 0, len(limits)*fieldCount)
	for i, limit := range limits {
		placeholders := make([]string, fieldCount)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", i*fieldCount+j+1)
		}
		valueClauses = append(valueClauses, "("+strings.Join(placeholders, ", ")+")")

		var endDate interface{}
		if limit.EndDate != nil {
			endDate = *limit.EndDate
		}
		var cycle interface{}
		if limit.MonthlyCycle > 0 {
			cycle = limit.MonthlyCycle
		}
		args = append(args, limit.ID, limit.TenantID, limit.SubscriptionID, limit.Plan,
			limit.ResourceType, limit.Limit, limit.CurrentSize, limit.StartDate,
			endDate, limit.IsYearlyMonthlyPlan, cycle, limit.CreatedAt, limit.UpdatedAt)
	}

	query := `
		INSERT INTO usage_limits (id, tenant_id, subscription_id, plan, resource_type, "limit", current_size,
		                          start_date, end_date, is_yearly_monthly_plan, monthly_cycle, created_at, updated_at)
		VALUES ` + strings.Join(valueClauses, ", ")

	if _, err := q.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert usage limits: %w", err)
	}
	return nil
}

// GetByID retrieves a usage limit by ID
func (r *PostgresUsageLimitRepo) GetByID(q Querier, id string) (*UsageLimit, error) {
	query := `SELECT ` + usageLimitColumns + ` FROM usage_limits WHERE id = $1`
	limit, err := scanUsageLimit(q.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, &Error{Kind: ErrUsageLimitNotFound, Message: "usage limit not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage limit: %w", err)
	}
	return limit, nil
}

// ListBySubscription lists all usage limit rows for a subscription
func (r *PostgresUsageLimitRepo) ListBySubscription(q Querier, subscriptionID string) ([]*UsageLimit, error) {
	query := `
		SELECT ` + usageLimitColumns + `
		FROM usage_limits
		WHERE subscription_id = $1
		ORDER BY start_date ASC, resource_type ASC
	`
	rows, err := q.Query(query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage limits: %w", err)
	}
	defer rows.Close()

	var limits []*UsageLimit
	for rows.Next() {
		limit, err := scanUsageLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage limit: %w", err)
		}
		limits = append(limits, limit)
	}
	return limits, rows.Err()
}

// FindCovering returns the row whose period contains asOf, or (nil, nil)
func (r *PostgresUsageLimitRepo) FindCovering(q Querier, subscriptionID string, resource ResourceType, asOf time.Time) (*UsageLimit, error) {
	query := `
		SELECT ` + usageLimitColumns + `
		FROM usage_limits
		WHERE subscription_id = $1 AND resource_type = $2 AND start_date <= $3
		  AND (end_date IS NULL OR end_date > $3)
		ORDER BY start_date DESC
		LIMIT 1
	`
	limit, err := scanUsageLimit(q.QueryRow(query, subscriptionID, resource, asOf))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find usage limit: %w", err)
	}
	return limit, nil
}

// ListCovering returns one row per resource type for the period
// containing asOf
func (r *PostgresUsageLimitRepo) ListCovering(q Querier, subscriptionID string, asOf time.Time) ([]*UsageLimit, error) {
	query := `
		SELECT ` + usageLimitColumns + `
		FROM usage_limits
		WHERE subscription_id = $1 AND start_date <= $2
		  AND (end_date IS NULL OR end_date > $2)
		ORDER BY resource_type ASC
	`
	rows, err := q.Query(query, subscriptionID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list covering usage limits: %w", err)
	}
	defer rows.Close()

	var limits []*UsageLimit
	for rows.Next() {
		limit, err := scanUsageLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage limit: %w", err)
		}
		limits = append(limits, limit)
	}
	return limits, rows.Err()
}

// AddToCurrentSize atomically adds delta to the covering row's counter.
// The increment happens at the storage layer so concurrent consumers
// never lose updates.
func (r *PostgresUsageLimitRepo) AddToCurrentSize(q Querier, subscriptionID string, resource ResourceType, asOf time.Time, delta int64) (*UsageLimit, error) {
	query := `
		UPDATE usage_limits
		SET current_size = current_size + $1, updated_at = $2
		WHERE subscription_id = $3 AND resource_type = $4 AND start_date <= $5
		  AND (end_date IS NULL OR end_date > $5)
		RETURNING ` + usageLimitColumns
	limit, err := scanUsageLimit(q.QueryRow(query, delta, asOf, subscriptionID, resource, asOf))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment usage: %w", err)
	}
	return limit, nil
}

// Update applies an allow-listed partial update to a usage limit row
func (r *PostgresUsageLimitRepo) Update(q Querier, id string, upd *UsageLimitUpdate, updatedAt time.Time) error {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	addClause := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if upd.ResourceType != nil {
		addClause("resource_type", *upd.ResourceType)
	}
	if upd.Limit != nil {
		addClause(`"limit"`, *upd.Limit)
	}
	if upd.CurrentSize != nil {
		addClause("current_size", *upd.CurrentSize)
	}
	if len(setClauses) == 0 {
		return nil
	}
	addClause("updated_at", updatedAt)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE usage_limits SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argPos)

	result, err := q.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update usage limit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &Error{Kind: ErrUsageLimitNotFound, Message: "usage limit not found"}
	}
	return nil
}

// Delete hard-deletes a usage limit row
func (r *PostgresUsageLimitRepo) Delete(q Querier, id string) error {
	result, err := q.Exec(`DELETE FROM usage_limits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete usage limit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &Error{Kind: ErrUsageLimitNotFound, Message: "usage limit not found"}
	}
	return nil
}
