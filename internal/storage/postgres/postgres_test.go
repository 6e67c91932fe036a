//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xenking/order-checkout/internal/domain/auth"
	"github.com/xenking/order-checkout/internal/domain/order"
	"github.com/xenking/order-checkout/internal/domain/user"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgC, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orders"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		panic(err)
	}
	defer func() { _ = pgC.Terminate(context.Background()) }()

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		panic(err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		panic(err)
	}
	// Idempotent.
	if err := RunMigrations(ctx, testPool); err != nil {
		panic(err)
	}
	return m.Run()
}

func newOrder(id, userID string) *order.Order {
	return &order.Order{
		ID:     id,
		UserID: userID,
		Items: []order.Item{
			{Name: "Shirt", Price: decimal.RequireFromString("500"), Quantity: 2},
		},
		Amount:   decimal.RequireFromString("1050.50"),
		Address:  json.RawMessage(`{"city":"Pune"}`),
		Discount: decimal.RequireFromString("10.25"),
		Delivery: decimal.RequireFromString("50"),
	}
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	o := newOrder("ord-1", "user-a")
	require.NoError(t, repo.Create(ctx, o))
	assert.Equal(t, order.DefaultStatus, o.Status)
	assert.False(t, o.Date.IsZero())

	got, err := repo.GetByID(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "user-a", got.UserID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1050.50")))
	assert.True(t, got.Discount.Equal(decimal.RequireFromString("10.25")))
	assert.True(t, got.Delivery.Equal(decimal.RequireFromString("50")))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Shirt", got.Items[0].Name)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("500")))
	assert.JSONEq(t, `{"city":"Pune"}`, string(got.Address))
	assert.False(t, got.Payment)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)

	t.Run("ListInsertionOrder", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newOrder("ord-2", "user-b")))
		require.NoError(t, repo.Create(ctx, newOrder("ord-0", "user-a")))

		mine, err := repo.ListByUser(ctx, "user-a")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, "ord-1", mine[0].ID)
		assert.Equal(t, "ord-0", mine[1].ID)

		none, err := repo.ListByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(all))
		for _, o := range all {
			ids = append(ids, o.ID)
		}
		assert.Equal(t, []string{"ord-1", "ord-2", "ord-0"}, ids)
	})

	t.Run("MarkPaidAndDeleteUnpaid", func(t *testing.T) {
		require.NoError(t, repo.MarkPaid(ctx, "ord-1"))
		require.NoError(t, repo.MarkPaid(ctx, "ord-1"))
		require.ErrorIs(t, repo.MarkPaid(ctx, "missing"), order.ErrNotFound)

		require.ErrorIs(t, repo.DeleteUnpaid(ctx, "ord-1"), order.ErrAlreadyPaid)
		require.ErrorIs(t, repo.DeleteUnpaid(ctx, "missing"), order.ErrNotFound)

		require.NoError(t, repo.DeleteUnpaid(ctx, "ord-2"))
		_, err := repo.GetByID(ctx, "ord-2")
		require.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, "ord-1", "Out for delivery"))
		got, err := repo.GetByID(ctx, "ord-1")
		require.NoError(t, err)
		assert.Equal(t, "Out for delivery", got.Status)

		require.ErrorIs(t, repo.UpdateStatus(ctx, "missing", "x"), order.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "ord-0"))
		require.NoError(t, repo.Delete(ctx, "ord-0"))
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	require.NoError(t, repo.UpsertUser(ctx, "U1", "Asha", "asha@example.com", user.Cart{"item-1": 2}))

	cart, err := repo.GetCart(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, user.Cart{"item-1": 2}, cart)

	require.NoError(t, repo.SetCart(ctx, "U1", user.Cart{}))
	cart, err = repo.GetCart(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, cart)

	require.NoError(t, repo.SetCart(ctx, "U1", nil))

	_, err = repo.GetCart(ctx, "missing")
	require.ErrorIs(t, err, user.ErrNotFound)
	require.ErrorIs(t, repo.SetCart(ctx, "missing", user.Cart{}), user.ErrNotFound)
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(testPool)

	key := auth.APIKeyInfo{
		ID:      "admin",
		KeyHash: "abc123",
		Name:    "Admin panel",
		Scopes:  []string{auth.ScopeOrdersAdmin},
	}
	require.NoError(t, repo.Upsert(ctx, key))

	got, err := repo.FindByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.ID)
	assert.True(t, got.HasScope(auth.ScopeOrdersAdmin))

	_, err = repo.FindByHash(ctx, "unknown")
	require.ErrorIs(t, err, auth.ErrKeyNotFound)
}
