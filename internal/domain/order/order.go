package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStatus is the status the persistence layer assigns to new orders.
const DefaultStatus = "Order placed"

// Order represents a single checkout attempt with its charges and payment
// state.
type Order struct {
	ID       string
	UserID   string
	Items    []Item
	Amount   decimal.Decimal
	Address  json.RawMessage
	Discount decimal.Decimal
	Delivery decimal.Decimal
	Payment  bool
	Status   string
	Date     time.Time
}

// Item represents a single purchased line of an order. Price is in major
// currency units.
type Item struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists o and fills the fields defaulted by storage (Status, Date).
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the orders of userID in insertion order.
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	// List returns all orders in insertion order.
	List(ctx context.Context) ([]*Order, error)
	// MarkPaid sets payment to true. Returns ErrNotFound for unknown ids.
	MarkPaid(ctx context.Context, id string) error
	// DeleteUnpaid removes the order when it has not been paid. Returns
	// ErrNotFound for unknown ids and ErrAlreadyPaid for paid orders.
	DeleteUnpaid(ctx context.Context, id string) error
	// Delete removes the order regardless of its payment state.
	Delete(ctx context.Context, id string) error
	// UpdateStatus overwrites the status. Returns ErrNotFound for unknown ids.
	UpdateStatus(ctx context.Context, id, status string) error
}
