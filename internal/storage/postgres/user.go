package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-checkout/internal/domain/user"
)

const (
	getCartSQL    = `SELECT cart_data FROM users WHERE id = $1`
	setCartSQL    = `UPDATE users SET cart_data = $2 WHERE id = $1`
	upsertUserSQL = `INSERT INTO users (id, name, email, cart_data) VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, cart_data = EXCLUDED.cart_data`
)

var _ user.CartRepository = (*UserRepository)(nil)

// UserRepository stores user carts in the users.cart_data JSONB column.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetCart returns the cart of userID or user.ErrNotFound.
func (r *UserRepository) GetCart(ctx context.Context, userID string) (user.Cart, error) {
	var data []byte
	if err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get cart of %q", userID)
	}

	cart := user.Cart{}
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, errors.Wrapf(err, "unmarshal cart of %q", userID)
	}
	return cart, nil
}

// SetCart overwrites the cart of userID.
func (r *UserRepository) SetCart(ctx context.Context, userID string, cart user.Cart) error {
	data, err := json.Marshal(cart.Clone())
	if err != nil {
		return errors.Wrap(err, "marshal cart")
	}
	tag, err := r.pool.Exec(ctx, setCartSQL, userID, data)
	if err != nil {
		return errors.Wrapf(err, "set cart of %q", userID)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// UpsertUser creates or replaces a user together with its cart.
func (r *UserRepository) UpsertUser(ctx context.Context, id, name, email string, cart user.Cart) error {
	data, err := json.Marshal(cart.Clone())
	if err != nil {
		return errors.Wrap(err, "marshal cart")
	}
	if _, err := r.pool.Exec(ctx, upsertUserSQL, id, name, email, data); err != nil {
		return errors.Wrapf(err, "upsert user %q", id)
	}
	return nil
}
