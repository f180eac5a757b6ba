package billing

import "errors"

// ErrorKind is a machine-readable classification of a billing error
type ErrorKind string

const (
	ErrTenantNotFound       ErrorKind = "tenant_not_found"
	ErrSubscriptionNotFound ErrorKind = "subscription_not_found"
	ErrUsageLimitNotFound   ErrorKind = "usage_limit_not_found"
	ErrInvalidPlan          ErrorKind = "invalid_plan"
	ErrInvalidInterval      ErrorKind = "invalid_interval"
	ErrPlanConflict         ErrorKind = "plan_conflict"
	ErrInvalidField         ErrorKind = "invalid_field"
	ErrUnknownPlan          ErrorKind = "unknown_plan"
	ErrResourceNotMetered   ErrorKind = "resource_not_metered"
)

// Error is a recoverable validation or state error. Storage-layer
// failures are wrapped with fmt.Errorf and surfaced unchanged instead.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsKind checks whether err is a billing error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

// KindOf returns the kind of a billing error, or "" for other errors
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsPlanConflict checks if an error is a plan conflict error
func IsPlanConflict(err error) bool {
	return IsKind(err, ErrPlanConflict)
}

// IsNotFound checks if an error is any of the not-found kinds
func IsNotFound(err error) bool {
	switch KindOf(err) {
	case ErrTenantNotFound, ErrSubscriptionNotFound, ErrUsageLimitNotFound:
		return true
	}
	return false
}
