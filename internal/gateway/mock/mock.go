// Package mock provides an in-process payment gateway for local development.
// Sessions redirect straight to the success URL, so the verify flow can be
// exercised without a payment provider.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-checkout/internal/domain/payment"
)

var _ payment.Gateway = (*Gateway)(nil)

// Gateway is a payment.Gateway that never contacts an external service.
type Gateway struct {
	seq atomic.Int64
}

// New returns a mock Gateway.
func New() *Gateway {
	return &Gateway{}
}

// CreateCoupon returns a sequential coupon id.
func (g *Gateway) CreateCoupon(ctx context.Context, p payment.CouponParams) (*payment.Coupon, error) {
	if p.AmountOff <= 0 {
		return nil, errors.Errorf("mock: invalid amount_off %d", p.AmountOff)
	}
	id := fmt.Sprintf("co_mock_%d", g.seq.Add(1))
	zctx.From(ctx).Debug("Mock coupon created", zap.String("id", id), zap.Int64("amount_off", p.AmountOff))
	return &payment.Coupon{ID: id}, nil
}

// CreateCheckoutSession returns a session whose URL is the success URL.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, p payment.SessionParams) (*payment.Session, error) {
	if len(p.LineItems) == 0 {
		return nil, errors.New("mock: line items required")
	}
	id := fmt.Sprintf("cs_mock_%d", g.seq.Add(1))
	zctx.From(ctx).Debug("Mock checkout session created",
		zap.String("id", id),
		zap.Int("line_items", len(p.LineItems)),
	)
	return &payment.Session{ID: id, URL: p.SuccessURL}, nil
}
