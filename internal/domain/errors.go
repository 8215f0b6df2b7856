package domain

import (
	"errors"
	"fmt"
)

// StockRequest errors
var (
	ErrRequestNotFound          = errors.New("stock request not found")
	ErrItemNotFound             = errors.New("inventory item not found")
	ErrVendorNotFound           = errors.New("vendor not found")
	ErrDuplicateRequest         = errors.New("an in-flight request already exists for this item")
	ErrInvalidQuantity          = errors.New("requested quantity must be at least 1")
	ErrInvalidReceivedQuantity  = errors.New("received quantity must be at least 1")
	ErrReasonRequired           = errors.New("reason is required")
	ErrReasonTooLong            = errors.New("reason must not exceed 500 characters")
	ErrAdminNotesTooLong        = errors.New("admin notes must not exceed 1000 characters")
	ErrRejectionReasonRequired  = errors.New("rejection reason is required")
	ErrInvalidUrgencyLevel      = errors.New("invalid urgency level")
	ErrNegativeEstimatedCost    = errors.New("estimated cost cannot be negative")
	ErrVendorRequired           = errors.New("vendor is required for dispatch")
	ErrDeliveryDateRequired     = errors.New("expected delivery date is required for dispatch")
	ErrStaleRequest             = errors.New("request was modified concurrently")
)

// InvalidTransitionError is returned when a status transition is not allowed
// from the request's current status.
type InvalidTransitionError struct {
	Current RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("request is already %s", e.Current)
}

// NewInvalidTransitionError creates an InvalidTransitionError for the given status
func NewInvalidTransitionError(current RequestStatus) *InvalidTransitionError {
	return &InvalidTransitionError{Current: current}
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) (*InvalidTransitionError, bool) {
	var ite *InvalidTransitionError
	if errors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}
