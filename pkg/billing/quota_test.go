package billing

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usageLimitRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "subscription_id", "plan", "resource_type", "limit", "current_size",
		"start_date", "end_date", "is_yearly_monthly_plan", "monthly_cycle", "created_at", "updated_at",
	})
}

func expectActivePaid(mock sqlmock.Sqlmock, subID string, end time.Time) {
	mock.ExpectQuery("SELECT (.+) FROM subscriptions WHERE tenant_id").
		WillReturnRows(subscriptionRows().AddRow(
			subID, "tenant-1", "professional", "month", true, true, false,
			testNow.Add(-10*24*time.Hour), end, testNow, testNow,
		))
}

func expectNoActivePaid(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT (.+) FROM subscriptions WHERE tenant_id").
		WillReturnRows(subscriptionRows())
}

func TestGetLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)

	end := testNow.Add(20 * 24 * time.Hour)
	expectActivePaid(mock, "sub-1", end)
	mock.ExpectQuery("SELECT (.+) FROM usage_limits WHERE subscription_id").
		WithArgs("sub-1", ResourceApps, testNow).
		WillReturnRows(usageLimitRows().AddRow(
			"ul-1", "tenant-1", "sub-1", "professional", "apps", int64(50), int64(12),
			testNow.Add(-10*24*time.Hour), end, false, nil, testNow, testNow,
		))

	limit, err := service.GetLimit("tenant-1", ResourceApps, testNow)
	require.NoError(t, err)

	assert.Equal(t, "ul-1", limit.ID)
	assert.Equal(t, int64(50), limit.Limit)
	assert.Equal(t, int64(12), limit.CurrentSize)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLimit_SandboxSynthesized(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)

	// No paid subscription and no stored rows: the limit comes straight
	// from the catalog
	expectNoActivePaid(mock)

	limit, err := service.GetLimit("tenant-1", ResourceMembers, testNow)
	require.NoError(t, err)

	assert.Empty(t, limit.ID)
	assert.Equal(t, PlanSandbox, limit.Plan)
	assert.Equal(t, int64(1), limit.Limit)
	assert.Equal(t, int64(0), limit.CurrentSize)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLimit_ResourceNotMetered(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)
	expectNoActivePaid(mock)

	_, err = service.GetLimit("tenant-1", ResourceType("gpus"), testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrResourceNotMetered))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLimit_NoCoveringPeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)

	end := testNow.Add(20 * 24 * time.Hour)
	expectActivePaid(mock, "sub-1", end)
	mock.ExpectQuery("SELECT (.+) FROM usage_limits WHERE subscription_id").
		WillReturnRows(usageLimitRows())

	_, err = service.GetLimit("tenant-1", ResourceApps, testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUsageLimitNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)

	end := testNow.Add(20 * 24 * time.Hour)
	expectActivePaid(mock, "sub-1", end)
	mock.ExpectQuery("UPDATE usage_limits SET current_size").
		WithArgs(int64(3), testNow, "sub-1", ResourceDocumentsUploadQuota, testNow).
		WillReturnRows(usageLimitRows().AddRow(
			"ul-1", "tenant-1", "sub-1", "professional", "documents_upload_quota",
			int64(500), int64(15), testNow.Add(-10*24*time.Hour), end, false, nil, testNow, testNow,
		))

	limit, err := service.Consume("tenant-1", ResourceDocumentsUploadQuota, 3, testNow)
	require.NoError(t, err)

	// The returned row carries the post-increment counter
	assert.Equal(t, int64(15), limit.CurrentSize)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_PastCeiling(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)

	// Consumption is recorded even past the ceiling; admission control
	// is the caller's concern
	end := testNow.Add(20 * 24 * time.Hour)
	expectActivePaid(mock, "sub-1", end)
	mock.ExpectQuery("UPDATE usage_limits SET current_size").
		WillReturnRows(usageLimitRows().AddRow(
			"ul-1", "tenant-1", "sub-1", "professional", "members",
			int64(3), int64(5), testNow.Add(-10*24*time.Hour), end, false, nil, testNow, testNow,
		))

	limit, err := service.Consume("tenant-1", ResourceMembers, 2, testNow)
	require.NoError(t, err)
	assert.Greater(t, limit.CurrentSize, limit.Limit)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_SandboxNotPersisted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)
	expectNoActivePaid(mock)

	limit, err := service.Consume("tenant-1", ResourceApps, 4, testNow)
	require.NoError(t, err)

	// Nothing durable backs the sandbox fallback; the counter reflects
	// only this call
	assert.Empty(t, limit.ID)
	assert.Equal(t, int64(4), limit.CurrentSize)
	assert.Equal(t, int64(10), limit.Limit)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_NoCoveringPeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)

	end := testNow.Add(20 * 24 * time.Hour)
	expectActivePaid(mock, "sub-1", end)
	mock.ExpectQuery("UPDATE usage_limits SET current_size").
		WillReturnRows(usageLimitRows())

	_, err = service.Consume("tenant-1", ResourceApps, 1, testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUsageLimitNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUsageLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)

	newLimit := int64(300)
	end := testNow.Add(20 * 24 * time.Hour)
	mock.ExpectExec("UPDATE usage_limits SET").
		WithArgs(newLimit, testNow, "ul-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM usage_limits WHERE id").
		WithArgs("ul-1").
		WillReturnRows(usageLimitRows().AddRow(
			"ul-1", "tenant-1", "sub-1", "professional", "apps", newLimit, int64(7),
			testNow, end, false, nil, testNow, testNow,
		))

	limit, err := service.UpdateUsageLimit("ul-1", &UsageLimitUpdate{Limit: &newLimit})
	require.NoError(t, err)
	assert.Equal(t, newLimit, limit.Limit)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUsageLimit_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)

	size := int64(0)
	mock.ExpectExec("UPDATE usage_limits SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = service.UpdateUsageLimit("missing", &UsageLimitUpdate{CurrentSize: &size})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUsageLimitNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUsageLimit_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTestService(db, true)

	mock.ExpectExec("DELETE FROM usage_limits").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = service.DeleteUsageLimit("missing")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUsageLimitNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}
