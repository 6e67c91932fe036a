package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-checkout/internal/domain/payment"
)

func TestGateway(t *testing.T) {
	ctx := context.Background()
	g := New()

	c, err := g.CreateCoupon(ctx, payment.CouponParams{AmountOff: 100, Duration: payment.DurationOnce})
	require.NoError(t, err)
	assert.Equal(t, "co_mock_1", c.ID)

	s, err := g.CreateCheckoutSession(ctx, payment.SessionParams{
		Mode:       payment.ModePayment,
		LineItems:  []payment.LineItem{{Name: "Shirt", UnitAmount: 100, Quantity: 1}},
		SuccessURL: "https://shop.example.com/verify?orderId=o1&success=true",
		CancelURL:  "https://shop.example.com/verify?orderId=o1&success=false",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_mock_2", s.ID)
	assert.Equal(t, "https://shop.example.com/verify?orderId=o1&success=true", s.URL)
}

func TestGateway_Errors(t *testing.T) {
	ctx := context.Background()
	g := New()

	_, err := g.CreateCoupon(ctx, payment.CouponParams{})
	require.Error(t, err)

	_, err = g.CreateCheckoutSession(ctx, payment.SessionParams{Mode: payment.ModePayment})
	require.Error(t, err)
}
