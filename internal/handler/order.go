package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-checkout/internal/domain/order"
	"github.com/xenking/order-checkout/internal/domain/user"
)

const (
	msgPaymentError = "Error processing payment"
	msgCouponError  = "Error creating discount coupon"
	msgError        = "Error"
	msgPaid         = "Paid"
	msgNotPaid      = "Not paid, failed"
	msgStatusDone   = "Status updated"
)

// PlaceOrder handles POST /place. The user id always comes from the token.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req placeOrderRequest
	if err := decode(w, r, &req); err != nil {
		writeResponse(w, failure(err.Error()))
		return
	}
	if id, ok := UserIDFrom(ctx); ok {
		req.UserID = id
	}
	if err := h.check(&req); err != nil {
		writeResponse(w, failure(err.Error()))
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.Item{Name: it.Name, Price: it.Price, Quantity: it.Quantity}
	}

	result, err := h.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID:   req.UserID,
		Items:    items,
		Amount:   req.Amount,
		Address:  req.Address,
		Discount: req.Discount,
		Delivery: req.Delivery,
	})
	if err != nil {
		writeResponse(w, failure(mapOrderError(ctx, err)))
		return
	}
	writeResponse(w, response{success: true, sessionURL: result.SessionURL})
}

// mapOrderError converts a PlaceOrder error into the message shown to the
// caller. Unexpected errors are logged and reported generically.
func mapOrderError(ctx context.Context, err error) string {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	var itemErr *order.InvalidItemError
	if errors.As(err, &itemErr) {
		return itemErr.Error()
	}
	if errors.Is(err, order.ErrEmptyItems) {
		return "Invalid request: items required"
	}
	// The service has already logged gateway failures.
	if errors.Is(err, order.ErrCouponFailed) {
		return msgCouponError
	}
	if errors.Is(err, order.ErrSessionFailed) {
		return msgPaymentError
	}
	if errors.Is(err, user.ErrNotFound) {
		zctx.From(ctx).Warn("Place order for unknown user", zap.Error(err))
		return msgPaymentError
	}

	zctx.From(ctx).Error("Place order", zap.Error(err))
	return msgPaymentError
}

// VerifyOrder handles POST /verify.
func (h *Handler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyOrderRequest
	if err := decode(w, r, &req); err != nil {
		writeResponse(w, failure(err.Error()))
		return
	}
	if err := h.check(&req); err != nil {
		writeResponse(w, failure(err.Error()))
		return
	}

	result, err := h.orders.VerifyOrder(ctx, req.OrderID, bool(req.Success))
	if err != nil {
		lg := zctx.From(ctx).With(zap.String("order_id", req.OrderID))
		switch {
		case errors.Is(err, order.ErrNotFound), errors.Is(err, order.ErrAlreadyPaid):
			lg.Warn("Verify order", zap.Error(err))
		default:
			lg.Error("Verify order", zap.Error(err))
		}
		writeResponse(w, failure(msgError))
		return
	}
	if !result.Paid {
		writeResponse(w, failure(msgNotPaid))
		return
	}
	writeResponse(w, response{success: true, message: msgPaid})
}

// UserOrders handles POST /userorders for the authenticated user.
func (h *Handler) UserOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req userOrdersRequest
	if err := decode(w, r, &req); err != nil {
		writeResponse(w, failure(err.Error()))
		return
	}
	if id, ok := UserIDFrom(ctx); ok {
		req.UserID = id
	}
	if err := h.check(&req); err != nil {
		writeResponse(w, failure(err.Error()))
		return
	}

	orders, err := h.orders.UserOrders(ctx, req.UserID)
	if err != nil {
		zctx.From(ctx).Error("List user orders", zap.Error(err))
		writeResponse(w, failure(msgError))
		return
	}
	writeResponse(w, response{success: true, data: orders, hasData: true})
}

// ListOrders handles GET /list.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		zctx.From(ctx).Error("List orders", zap.Error(err))
		writeResponse(w, failure(msgError))
		return
	}
	writeResponse(w, response{success: true, data: orders, hasData: true})
}

// UpdateStatus handles POST /status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateStatusRequest
	if err := decode(w, r, &req); err != nil {
		writeResponse(w, failure(err.Error()))
		return
	}
	if err := h.check(&req); err != nil {
		writeResponse(w, failure(err.Error()))
		return
	}

	if err := h.orders.UpdateStatus(ctx, req.OrderID, req.Status); err != nil {
		var vErr *order.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeResponse(w, failure(vErr.Message))
			return
		case errors.Is(err, order.ErrNotFound):
			zctx.From(ctx).Warn("Update status", zap.String("order_id", req.OrderID), zap.Error(err))
		default:
			zctx.From(ctx).Error("Update status", zap.String("order_id", req.OrderID), zap.Error(err))
		}
		writeResponse(w, failure(msgError))
		return
	}
	writeResponse(w, response{success: true, message: msgStatusDone})
}
