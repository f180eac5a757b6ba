package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPlan(t *testing.T) {
	assert.True(t, ValidPlan(PlanSandbox))
	assert.True(t, ValidPlan(PlanProfessional))
	assert.True(t, ValidPlan(PlanTeam))
	assert.False(t, ValidPlan(Plan("enterprise")))
	assert.False(t, ValidPlan(Plan("")))
}

func TestValidInterval(t *testing.T) {
	assert.True(t, ValidInterval(IntervalMonth))
	assert.True(t, ValidInterval(IntervalYear))
	assert.False(t, ValidInterval(Interval("week")))
	assert.False(t, ValidInterval(Interval("")))
}

func TestSubscriptionActiveAt(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)

	sub := &Subscription{StartDate: start, EndDate: &end}

	assert.False(t, sub.ActiveAt(start.Add(-time.Second)))
	assert.True(t, sub.ActiveAt(start))
	assert.True(t, sub.ActiveAt(start.Add(15*24*time.Hour)))
	// End is exclusive
	assert.False(t, sub.ActiveAt(end))
	assert.False(t, sub.ActiveAt(end.Add(time.Hour)))
}

func TestSubscriptionActiveAt_NoEndDate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sub := &Subscription{StartDate: start}

	assert.True(t, sub.ActiveAt(start))
	assert.True(t, sub.ActiveAt(start.AddDate(10, 0, 0)))
}

func TestActiveSubscriptionPersisted(t *testing.T) {
	persisted := &ActiveSubscription{Subscription: &Subscription{ID: "abc"}}
	assert.True(t, persisted.Persisted())

	synthetic := &ActiveSubscription{Subscription: &Subscription{}, Synthetic: true}
	assert.False(t, synthetic.Persisted())
}

func TestParseSubscriptionUpdate(t *testing.T) {
	upd, err := ParseSubscriptionUpdate([]byte(`{"plan": "team", "docs_processing": true}`))
	require.NoError(t, err)
	require.NotNil(t, upd.Plan)
	assert.Equal(t, PlanTeam, *upd.Plan)
	require.NotNil(t, upd.DocsProcessing)
	assert.True(t, *upd.DocsProcessing)
	assert.Nil(t, upd.Interval)
	assert.False(t, upd.Empty())
}

func TestParseSubscriptionUpdate_InvalidField(t *testing.T) {
	_, err := ParseSubscriptionUpdate([]byte(`{"plan": "team", "tenant_id": "other"}`))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidField))
	assert.Contains(t, err.Error(), "tenant_id")
}

func TestParseSubscriptionUpdate_Malformed(t *testing.T) {
	_, err := ParseSubscriptionUpdate([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidField))
}

func TestParseSubscriptionUpdate_Empty(t *testing.T) {
	upd, err := ParseSubscriptionUpdate([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, upd.Empty())
}

func TestParseUsageLimitUpdate(t *testing.T) {
	upd, err := ParseUsageLimitUpdate([]byte(`{"limit": 500, "current_size": 3}`))
	require.NoError(t, err)
	require.NotNil(t, upd.Limit)
	assert.Equal(t, int64(500), *upd.Limit)
	require.NotNil(t, upd.CurrentSize)
	assert.Equal(t, int64(3), *upd.CurrentSize)
	assert.Nil(t, upd.ResourceType)
}

func TestParseUsageLimitUpdate_InvalidField(t *testing.T) {
	_, err := ParseUsageLimitUpdate([]byte(`{"subscription_id": "abc"}`))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidField))
}
