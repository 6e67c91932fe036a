package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/order-checkout/internal/domain/auth"
	"github.com/xenking/order-checkout/internal/domain/user"
	"github.com/xenking/order-checkout/internal/security"
	"github.com/xenking/order-checkout/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	userID       string
	userName     string
	userEmail    string
	cart         string
	apiKey       string
	apiKeyPepper string
	jwtSecret    string
	tokenTTL     time.Duration
}

func envDefault(dst *string, names ...string) {
	for _, name := range names {
		if *dst != "" {
			return
		}
		*dst = os.Getenv(name)
	}
}

func main() {
	var o options
	flag.StringVar(&o.databaseURL, "database-url", "", "PostgreSQL connection URL (or ORDERS_DATABASE_URL, DATABASE_URL env)")
	flag.StringVar(&o.userID, "user-id", "demo-user", "id of the demo user")
	flag.StringVar(&o.userName, "user-name", "Demo User", "name of the demo user")
	flag.StringVar(&o.userEmail, "user-email", "demo@example.com", "email of the demo user")
	flag.StringVar(&o.cart, "cart", `{"1":2,"2":1}`, "cart of the demo user as a JSON object of item id to quantity")
	flag.StringVar(&o.apiKey, "api-key", "", "admin API key to seed (or ORDERS_SEED_API_KEY env)")
	flag.StringVar(&o.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERS_API_KEY_PEPPER env)")
	flag.StringVar(&o.jwtSecret, "jwt-secret", "", "secret to sign the demo user token with (or ORDERS_JWT_SECRET env)")
	flag.DurationVar(&o.tokenTTL, "token-ttl", 168*time.Hour, "lifetime of the demo user token")
	flag.Parse()

	envDefault(&o.databaseURL, "ORDERS_DATABASE_URL", "DATABASE_URL")
	envDefault(&o.apiKey, "ORDERS_SEED_API_KEY")
	envDefault(&o.apiKeyPepper, "ORDERS_API_KEY_PEPPER")
	envDefault(&o.jwtSecret, "ORDERS_JWT_SECRET")

	if o.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if o.apiKey == "" {
		slog.Error("API key is required: set --api-key or ORDERS_SEED_API_KEY")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, o); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, o options) error {
	var cart user.Cart
	if err := json.Unmarshal([]byte(o.cart), &cart); err != nil {
		return errors.Wrap(err, "parse cart")
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, o.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	users := postgres.NewUserRepository(pool)
	if err := users.UpsertUser(ctx, o.userID, o.userName, o.userEmail, cart); err != nil {
		return errors.Wrap(err, "seed user")
	}
	slog.Info("upserted user", slog.String("id", o.userID), slog.Int("cart_items", len(cart)))

	keys := postgres.NewAPIKeyRepository(pool)
	if err := keys.Upsert(ctx, auth.APIKeyInfo{
		ID:      "admin",
		KeyHash: security.HashAPIKey(o.apiKey, []byte(o.apiKeyPepper)),
		Name:    "Admin panel",
		Scopes:  []string{auth.ScopeOrdersAdmin},
	}); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	slog.Info("upserted api key", slog.String("id", "admin"))

	if o.jwtSecret == "" {
		slog.Warn("no jwt secret given, skipping user token")
		return nil
	}
	token, err := security.NewJWTService(o.jwtSecret, o.tokenTTL).GenerateToken(o.userID)
	if err != nil {
		return errors.Wrap(err, "sign user token")
	}
	fmt.Println(token)
	return nil
}
