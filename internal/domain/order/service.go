package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/order-checkout/internal/domain/payment"
	"github.com/xenking/order-checkout/internal/domain/user"
)

const instrumentationName = "github.com/xenking/order-checkout/internal/domain/order"

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID   string
	Items    []Item
	Amount   decimal.Decimal
	Address  json.RawMessage
	Discount decimal.Decimal
	Delivery decimal.Decimal
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order      *Order
	SessionURL string
}

// VerifyResult reports the outcome of a payment verification. Paid is false
// when the payment was declined and the order was removed.
type VerifyResult struct {
	OrderID string
	Paid    bool
}

// Config holds non-dependency settings for the Service.
type Config struct {
	// FrontendURL is the base of the success and cancel redirect URLs.
	FrontendURL string

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service encapsulates order placement, verification and administration.
type Service struct {
	orders  Repository
	carts   user.CartRepository
	gateway payment.Gateway

	frontendURL string

	tracer        trace.Tracer
	placed        metric.Int64Counter
	verified      metric.Int64Counter
	compensations metric.Int64Counter
}

// NewService creates an order Service with the required dependencies.
func NewService(
	orders Repository,
	carts user.CartRepository,
	gateway payment.Gateway,
	cfg Config,
) (*Service, error) {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}
	meter := cfg.MeterProvider.Meter(instrumentationName)

	s := &Service{
		orders:      orders,
		carts:       carts,
		gateway:     gateway,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		tracer:      cfg.TracerProvider.Tracer(instrumentationName),
	}

	var err error
	if s.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders with an issued checkout session"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.verified, err = meter.Int64Counter("orders.verified",
		metric.WithDescription("Payment verifications by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.verified counter")
	}
	if s.compensations, err = meter.Int64Counter("orders.compensations",
		metric.WithDescription("Order placements rolled back after a gateway failure"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.compensations counter")
	}
	return s, nil
}

// charge validates a delivery charge or discount: non-negative, at most two
// fractional digits, and within MaxMinorUnits. It returns the minor units.
func charge(d decimal.Decimal, field, message string) (int64, error) {
	invalid := &ValidationError{Field: field, Message: message}
	if d.IsNegative() || !d.Equal(d.Round(2)) {
		return 0, invalid
	}
	amount, err := MinorUnits(d)
	if err != nil {
		return 0, invalid
	}
	return amount, nil
}

// validate checks the request before anything is written and returns the
// line items and the coupon amount. The delivery charge is checked first so
// it is reported regardless of item validity.
func (r PlaceOrderRequest) validate() (lines []payment.LineItem, amountOff int64, err error) {
	if _, err := charge(r.Delivery, "delivery", "Invalid delivery charge"); err != nil {
		return nil, 0, err
	}
	if len(r.Items) == 0 {
		return nil, 0, ErrEmptyItems
	}
	if lines, err = BuildLineItems(r.Items, r.Delivery); err != nil {
		return nil, 0, err
	}
	if amountOff, err = charge(r.Discount, "discount", "Invalid discount"); err != nil {
		return nil, 0, err
	}
	return lines, amountOff, nil
}

// PlaceOrder validates the request, persists the order, clears the user's
// cart and requests a checkout session from the gateway. When the gateway
// fails the order is deleted and the cart restored.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("user.id", req.UserID)),
	)
	defer func() { endSpan(span, rerr) }()

	lines, amountOff, err := req.validate()
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.GetCart(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	o := &Order{
		ID:       uuid.New().String(),
		UserID:   req.UserID,
		Items:    req.Items,
		Amount:   req.Amount,
		Address:  req.Address,
		Discount: req.Discount,
		Delivery: req.Delivery,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	var undo compensations
	undo.add("delete order", func(ctx context.Context) error {
		return s.orders.Delete(ctx, o.ID)
	})
	defer func() {
		if rerr != nil && undo.pending() {
			s.compensations.Add(ctx, 1)
			undo.run(ctx)
		}
	}()

	if err := s.carts.SetCart(ctx, req.UserID, user.Cart{}); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	undo.add("restore cart", func(ctx context.Context) error {
		return s.carts.SetCart(ctx, req.UserID, cart.Clone())
	})

	var couponID string
	if amountOff > 0 {
		coupon, err := s.gateway.CreateCoupon(ctx, payment.CouponParams{
			AmountOff: amountOff,
			Duration:  payment.DurationOnce,
		})
		if err != nil {
			zctx.From(ctx).Error("Create coupon", zap.String("order_id", o.ID), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrCouponFailed, err)
		}
		couponID = coupon.ID
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionParams{
		Mode:              payment.ModePayment,
		LineItems:         lines,
		CouponID:          couponID,
		SuccessURL:        s.redirectURL(o.ID, true),
		CancelURL:         s.redirectURL(o.ID, false),
		ClientReferenceID: o.ID,
	})
	if err != nil {
		zctx.From(ctx).Error("Create checkout session", zap.String("order_id", o.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}

	s.placed.Add(ctx, 1)
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("session_id", session.ID),
	)
	return &PlaceOrderResult{Order: o, SessionURL: session.URL}, nil
}

func (s *Service) redirectURL(orderID string, success bool) string {
	q := url.Values{}
	q.Set("success", strconv.FormatBool(success))
	q.Set("orderId", orderID)
	return s.frontendURL + "/verify?" + q.Encode()
}

// VerifyOrder records the outcome of a checkout. A successful payment marks
// the order paid; otherwise the unpaid order is deleted.
func (s *Service) VerifyOrder(ctx context.Context, orderID string, success bool) (_ *VerifyResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.VerifyOrder", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.Bool("payment.success", success),
	))
	defer func() { endSpan(span, rerr) }()

	if success {
		if err := s.orders.MarkPaid(ctx, orderID); err != nil {
			return nil, errors.Wrap(err, "mark paid")
		}
	} else {
		if err := s.orders.DeleteUnpaid(ctx, orderID); err != nil {
			return nil, errors.Wrap(err, "delete unpaid")
		}
	}

	s.verified.Add(ctx, 1, metric.WithAttributes(attribute.Bool("paid", success)))
	return &VerifyResult{OrderID: orderID, Paid: success}, nil
}

// UserOrders returns the orders placed by userID.
func (s *Service) UserOrders(ctx context.Context, userID string) (_ []*Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UserOrders",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer func() { endSpan(span, rerr) }()

	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}
	return orders, nil
}

// ListOrders returns every order.
func (s *Service) ListOrders(ctx context.Context) (_ []*Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.ListOrders")
	defer func() { endSpan(span, rerr) }()

	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus overwrites the status of an order. Any non-empty label is
// accepted.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", status),
	))
	defer func() { endSpan(span, rerr) }()

	if strings.TrimSpace(status) == "" {
		return &ValidationError{Field: "status", Message: "Invalid status"}
	}
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return errors.Wrap(err, "update status")
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
