package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeLinkNotFound            = "LINK_NOT_FOUND"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodePayoutNotEligible       = "PAYOUT_NOT_ELIGIBLE"
	ErrCodeInvalidCommissionRate   = "INVALID_COMMISSION_RATE"
	ErrCodeInvalidMinimumPayout    = "INVALID_MINIMUM_PAYOUT"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeConflict                = "CONFLICT"
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInternal                = "INTERNAL_ERROR"
)

// NewLinkNotFoundError is returned when a referral code is unknown or its
// link is deactivated. Callers must treat both cases identically.
func NewLinkNotFoundError(code string) error {
	return &DomainError{
		Code:    ErrCodeLinkNotFound,
		Message: fmt.Sprintf("referral link %q not found", code),
	}
}

// NewInvalidTransitionError rejects a creator status change that is not an
// edge of the status state machine.
func NewInvalidTransitionError(from, to string) error {
	return &DomainError{
		Code:    ErrCodeInvalidStatusTransition,
		Message: fmt.Sprintf("cannot transition creator from %s to %s", from, to),
	}
}

// NewPayoutNotEligibleError is returned when the approved balance is below
// the creator's minimum payout.
func NewPayoutNotEligibleError(available, minimum string) error {
	return &DomainError{
		Code:    ErrCodePayoutNotEligible,
		Message: fmt.Sprintf("approved balance %s is below minimum payout %s", available, minimum),
	}
}

// NewInvalidCommissionRateError rejects a rate outside [0, 50]
func NewInvalidCommissionRateError(rate string) error {
	return &DomainError{
		Code:    ErrCodeInvalidCommissionRate,
		Message: fmt.Sprintf("commission rate %s must be between 0 and 50 percent", rate),
	}
}

// NewInvalidMinimumPayoutError rejects a minimum payout below 10
func NewInvalidMinimumPayoutError(minimum string) error {
	return &DomainError{
		Code:    ErrCodeInvalidMinimumPayout,
		Message: fmt.Sprintf("minimum payout %s must be at least 10", minimum),
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string) error {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: msg,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError() error {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: "Authentication required",
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(msg string) error {
	return &DomainError{
		Code:    ErrCodeForbidden,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

func is(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsLinkNotFound checks if the error is a link not found error
func IsLinkNotFound(err error) bool { return is(err, ErrCodeLinkNotFound) }

// IsInvalidTransition checks if the error is an invalid status transition error
func IsInvalidTransition(err error) bool { return is(err, ErrCodeInvalidStatusTransition) }

// IsPayoutNotEligible checks if the error is a payout eligibility error
func IsPayoutNotEligible(err error) bool { return is(err, ErrCodePayoutNotEligible) }

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool { return is(err, ErrCodeNotFound) }

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool { return is(err, ErrCodeValidation) }

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool { return is(err, ErrCodeConflict) }

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}
