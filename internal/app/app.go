package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-checkout/internal/domain/order"
	"github.com/xenking/order-checkout/internal/domain/payment"
	"github.com/xenking/order-checkout/internal/gateway/mock"
	"github.com/xenking/order-checkout/internal/gateway/stripe"
	"github.com/xenking/order-checkout/internal/handler"
	"github.com/xenking/order-checkout/internal/security"
	"github.com/xenking/order-checkout/internal/storage/postgres"
	"github.com/xenking/order-checkout/pkg/health"
	"github.com/xenking/order-checkout/pkg/httpmiddleware"
)

const serviceName = "orders-api"

// NewGateway returns the payment gateway selected by cfg.
func NewGateway(cfg *Config) (payment.Gateway, error) {
	switch cfg.Gateway.Provider {
	case ProviderMock:
		return mock.New(), nil
	case ProviderStripe:
		g, err := stripe.New(stripe.Config{
			SecretKey: cfg.Stripe.SecretKey,
			Currency:  cfg.Gateway.Currency,
			APIURL:    cfg.Stripe.APIURL,
			Timeout:   cfg.Stripe.Timeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "stripe gateway")
		}
		return g, nil
	default:
		return nil, errors.Errorf("unknown gateway provider %q", cfg.Gateway.Provider)
	}
}

// newHTTPHandler wraps h with the server middleware chain. Instrument wraps
// Recovery and the rate limiter, so recovered panics and 429 responses are
// traced and metered.
func newHTTPHandler(
	lg *zap.Logger,
	h http.Handler,
	limiter *httpmiddleware.RateLimiter,
	cfg *Config,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	return httpmiddleware.Wrap(h,
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument(serviceName, tp, mp),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:          cfg.CORS.Origins,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		limiter.Middleware(),
		httpmiddleware.LogRequests(),
	)
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("gateway", cfg.Gateway.Provider),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	gateway, err := NewGateway(cfg)
	if err != nil {
		return err
	}

	orderService, err := order.NewService(
		postgres.NewOrderRepository(pool),
		postgres.NewUserRepository(pool),
		gateway,
		order.Config{
			FrontendURL:    cfg.FrontendURL,
			TracerProvider: m.TracerProvider(),
			MeterProvider:  m.MeterProvider(),
		},
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	h := handler.NewHandler(handler.Config{
		Orders:  orderService,
		Tokens:  security.NewJWTService(cfg.JWTSecret, 0),
		APIKeys: postgres.NewAPIKeyRepository(pool),
		Pepper:  []byte(cfg.APIKeyPepper),
	})

	mux := chi.NewRouter()
	mux.Get("/livez", healthSvc.LiveEndpoint)
	mux.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Mount(mux)

	limiter := httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
		Rate:  cfg.RateLimit.Rate,
		Burst: cfg.RateLimit.Burst,
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newHTTPHandler(zctx.From(ctx), mux, limiter, cfg, m.TracerProvider(), m.MeterProvider()),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(gCtx, 10*time.Second)
	})
	g.Go(func() error {
		return limiter.Run(gCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		healthSvc.SetReady(true)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}
