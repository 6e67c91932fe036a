package user

import (
	"context"
	"errors"
	"maps"
)

// ErrNotFound is returned when no user exists for the given id.
var ErrNotFound = errors.New("user not found")

// Cart maps an item id to the selected quantity.
type Cart map[string]int

// Clone returns an independent copy of the cart.
func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	return maps.Clone(c)
}

// CartRepository reads and overwrites a user's cart.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (Cart, error)
	SetCart(ctx context.Context, userID string, cart Cart) error
}
