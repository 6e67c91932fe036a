// Package payment defines the hosted-checkout gateway consumed by order
// placement.
package payment

import "context"

// Mode is the checkout session mode.
type Mode string

// ModePayment is a single, one-off payment.
const ModePayment Mode = "payment"

// Duration controls how long a coupon stays applied.
type Duration string

// DurationOnce applies the coupon to a single charge.
const DurationOnce Duration = "once"

// LineItem is one priced entry of a checkout session. UnitAmount is in minor
// currency units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CouponParams describes a fixed-amount-off coupon. AmountOff is in minor
// currency units.
type CouponParams struct {
	AmountOff int64
	Duration  Duration
}

// Coupon is a gateway-side discount object.
type Coupon struct {
	ID string
}

// SessionParams describes a hosted checkout session.
type SessionParams struct {
	Mode      Mode
	LineItems []LineItem
	// CouponID is applied as a session discount when non-empty.
	CouponID          string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
}

// Session is a created checkout session.
type Session struct {
	ID  string
	URL string
}

// Gateway creates coupons and checkout sessions on a hosted payment provider.
type Gateway interface {
	CreateCoupon(ctx context.Context, params CouponParams) (*Coupon, error)
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
}
