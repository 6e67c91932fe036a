package order

import (
	"errors"
	"fmt"
)

// Sentinel errors for order operations.
var (
	ErrNotFound      = errors.New("order not found")
	ErrAlreadyPaid   = errors.New("order already paid")
	ErrEmptyItems    = errors.New("items required")
	ErrCouponFailed  = errors.New("create discount coupon")
	ErrSessionFailed = errors.New("create checkout session")

	// ErrAmountOutOfRange is returned by MinorUnits for amounts whose
	// magnitude exceeds MaxMinorUnits.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// ValidationError reports a rejected order field. Message is safe to show to
// the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvalidItemError indicates a line item with a non-positive price or
// quantity.
type InvalidItemError struct {
	Index int
	Name  string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("Invalid item data: %s", e.Name)
}
