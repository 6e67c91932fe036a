// Package handler exposes the order service over HTTP.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/order-checkout/internal/domain/auth"
	"github.com/xenking/order-checkout/internal/domain/order"
)

// OrderService is the subset of order.Service used by the handlers.
type OrderService interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
	VerifyOrder(ctx context.Context, orderID string, success bool) (*order.VerifyResult, error)
	UserOrders(ctx context.Context, userID string) ([]*order.Order, error)
	ListOrders(ctx context.Context) ([]*order.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) error
}

var _ OrderService = (*order.Service)(nil)

// Config holds the dependencies of the Handler.
type Config struct {
	Orders  OrderService
	Tokens  auth.TokenParser
	APIKeys auth.Repository
	// Pepper is the HMAC key API keys are hashed with.
	Pepper []byte
}

// Handler serves the /api/order endpoints.
type Handler struct {
	orders   OrderService
	tokens   auth.TokenParser
	apikeys  auth.Repository
	pepper   []byte
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		orders:   cfg.Orders,
		tokens:   cfg.Tokens,
		apikeys:  cfg.APIKeys,
		pepper:   cfg.Pepper,
		validate: newValidator(),
	}
}

// Routes returns the order router, meant to be mounted at /api/order.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/verify", h.VerifyOrder)

	r.Group(func(ur chi.Router) {
		ur.Use(h.UserAuth)
		ur.Post("/place", h.PlaceOrder)
		ur.Post("/userorders", h.UserOrders)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(h.AdminAuth(auth.ScopeOrdersAdmin))
		ar.Get("/list", h.ListOrders)
		ar.Post("/status", h.UpdateStatus)
	})

	return r
}

// Mount attaches the order routes to mux under /api/order.
func (h *Handler) Mount(mux chi.Router) {
	mux.Mount("/api/order", h.Routes())
}
