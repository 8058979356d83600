package domain

import "errors"

// Domain errors
var (
	ErrEntitlementNotFound   = errors.New("entitlement record not found")
	ErrQuotaExhausted        = errors.New("token quota exhausted")
	ErrProviderUnavailable   = errors.New("billing provider unavailable")
	ErrConcurrentUpdate      = errors.New("concurrent entitlement update")
	ErrInvalidTier           = errors.New("invalid subscription tier")
	ErrTierChangeUnconfirmed = errors.New("tier change not confirmed by billing provider")
	ErrNotAuthenticated      = errors.New("user not authenticated")
	ErrInvalidToken          = errors.New("invalid token")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
