package billing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKind(t *testing.T) {
	err := &Error{Kind: ErrPlanConflict, Message: "conflict"}

	assert.True(t, IsKind(err, ErrPlanConflict))
	assert.False(t, IsKind(err, ErrTenantNotFound))
	assert.False(t, IsKind(errors.New("plain"), ErrPlanConflict))
	assert.False(t, IsKind(nil, ErrPlanConflict))
}

func TestKindOf_Wrapped(t *testing.T) {
	base := &Error{Kind: ErrSubscriptionNotFound, Message: "subscription not found"}
	wrapped := fmt.Errorf("resolving tenant: %w", base)

	assert.Equal(t, ErrSubscriptionNotFound, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&Error{Kind: ErrTenantNotFound}))
	assert.True(t, IsNotFound(&Error{Kind: ErrSubscriptionNotFound}))
	assert.True(t, IsNotFound(&Error{Kind: ErrUsageLimitNotFound}))
	assert.False(t, IsNotFound(&Error{Kind: ErrPlanConflict}))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestIsPlanConflict(t *testing.T) {
	assert.True(t, IsPlanConflict(&Error{Kind: ErrPlanConflict}))
	assert.False(t, IsPlanConflict(&Error{Kind: ErrInvalidPlan}))
}
