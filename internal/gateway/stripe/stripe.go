// Package stripe implements payment.Gateway on top of Stripe Checkout.
package stripe

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/xenking/order-checkout/internal/domain/payment"
)

var _ payment.Gateway = (*Gateway)(nil)

// Config configures the Stripe gateway.
type Config struct {
	SecretKey string
	// Currency is the ISO currency code used for every price and coupon.
	Currency string
	// APIURL overrides the Stripe API base URL. Empty uses the default.
	APIURL string
	// Timeout bounds each API call. Zero uses the Stripe client default.
	Timeout time.Duration
}

// Gateway creates coupons and checkout sessions through the Stripe API.
// Network retries are disabled.
type Gateway struct {
	api      *client.API
	currency string
}

// New returns a Gateway using an explicitly constructed Stripe client.
func New(cfg Config) (*Gateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if cfg.Currency == "" {
		return nil, errors.New("stripe currency is required")
	}

	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.Timeout > 0 {
		backendCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &Gateway{api: api, currency: cfg.Currency}, nil
}

// CreateCoupon creates a fixed-amount-off coupon in the configured currency.
func (g *Gateway) CreateCoupon(ctx context.Context, p payment.CouponParams) (*payment.Coupon, error) {
	params := &stripe.CouponParams{
		AmountOff: stripe.Int64(p.AmountOff),
		Currency:  stripe.String(g.currency),
		Duration:  stripe.String(string(p.Duration)),
	}
	params.Context = ctx

	c, err := g.api.Coupons.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "stripe: create coupon")
	}
	return &payment.Coupon{ID: c.ID}, nil
}

// CreateCheckoutSession creates a hosted checkout session with inline prices.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, p payment.SessionParams) (*payment.Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(p.Mode)),
		LineItems:  make([]*stripe.CheckoutSessionLineItemParams, 0, len(p.LineItems)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	if p.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(p.ClientReferenceID)
		params.AddMetadata("order_id", p.ClientReferenceID)
	}
	for _, line := range p.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
				UnitAmount: stripe.Int64(line.UnitAmount),
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}
	if p.CouponID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(p.CouponID)},
		}
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "stripe: create checkout session")
	}
	if s.URL == "" {
		return nil, errors.Errorf("stripe: checkout session %s has no url", s.ID)
	}
	return &payment.Session{ID: s.ID, URL: s.URL}, nil
}
