package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-checkout/internal/domain/order"
)

const orderColumns = `id, user_id, items, amount, address, discount, delivery, payment, status, created_at`

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, items, amount, address, discount, delivery)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING status, created_at`
	getOrderSQL         = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY seq`
	listOrdersSQL       = `SELECT ` + orderColumns + ` FROM orders ORDER BY seq`
	markPaidSQL         = `UPDATE orders SET payment = TRUE WHERE id = $1`
	deleteUnpaidSQL     = `WITH target AS (
		SELECT id, payment FROM orders WHERE id = $1 FOR UPDATE
	), deleted AS (
		DELETE FROM orders o USING target t WHERE o.id = t.id AND NOT t.payment
	)
	SELECT payment FROM target`
	deleteOrderSQL  = `DELETE FROM orders WHERE id = $1`
	updateStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Items are serialized to JSON for the JSONB
// column; status and date come back from the column defaults.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}
	address := []byte(o.Address)
	if len(address) == 0 {
		address = []byte("{}")
	}

	err = r.pool.QueryRow(ctx, createOrderSQL,
		o.ID, o.UserID, items, o.Amount, address, o.Discount, o.Delivery,
	).Scan(&o.Status, &o.Date)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of %q", userID)
	}
	return collectOrders(rows)
}

func (r *OrderRepository) List(ctx context.Context) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return collectOrders(rows)
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, markPaidSQL, id)
	if err != nil {
		return errors.Wrapf(err, "mark order %q paid", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// DeleteUnpaid removes an unpaid order in a single statement that also
// reports whether the order existed and was paid.
func (r *OrderRepository) DeleteUnpaid(ctx context.Context, id string) error {
	var paid bool
	if err := r.pool.QueryRow(ctx, deleteUnpaidSQL, id).Scan(&paid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		return errors.Wrapf(err, "delete unpaid order %q", id)
	}
	if paid {
		return order.ErrAlreadyPaid
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, deleteOrderSQL, id); err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.pool.Exec(ctx, updateStatusSQL, id, status)
	if err != nil {
		return errors.Wrapf(err, "update status of order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func collectOrders(rows pgx.Rows) ([]*order.Order, error) {
	defer rows.Close()

	orders := make([]*order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o       order.Order
		items   []byte
		address []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &items, &o.Amount, &address,
		&o.Discount, &o.Delivery, &o.Payment, &o.Status, &o.Date,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, errors.Wrapf(err, "unmarshal items of order %q", o.ID)
	}
	o.Address = json.RawMessage(address)
	return &o, nil
}
