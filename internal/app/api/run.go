// Package api boots the fleamarket HTTP API process: configuration,
// observability, storage, the expiry engine, and the gin router.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	cartmemory "github.com/averos/fleamarket/internal/domains/cart/adapters/memory"
	cartpostgres "github.com/averos/fleamarket/internal/domains/cart/adapters/persistence/postgres"
	cartapp "github.com/averos/fleamarket/internal/domains/cart/application"
	cartports "github.com/averos/fleamarket/internal/domains/cart/ports"

	catalogmemory "github.com/averos/fleamarket/internal/domains/catalog/adapters/memory"
	catalogpostgres "github.com/averos/fleamarket/internal/domains/catalog/adapters/persistence/postgres"
	catalogapp "github.com/averos/fleamarket/internal/domains/catalog/application"
	catalogports "github.com/averos/fleamarket/internal/domains/catalog/ports"

	noopexpiry "github.com/averos/fleamarket/internal/domains/orders/adapters/expiry/noop"
	redisexpiry "github.com/averos/fleamarket/internal/domains/orders/adapters/expiry/redis"
	ordersmemory "github.com/averos/fleamarket/internal/domains/orders/adapters/memory"
	ordersobs "github.com/averos/fleamarket/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/averos/fleamarket/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/averos/fleamarket/internal/domains/orders/application"
	ordersports "github.com/averos/fleamarket/internal/domains/orders/ports"

	paymentsandbox "github.com/averos/fleamarket/internal/domains/payments/adapters/sandbox"
	paymentports "github.com/averos/fleamarket/internal/domains/payments/ports"

	"github.com/averos/fleamarket/internal/httpapi"
	"github.com/averos/fleamarket/internal/platform/migrations"
	platformobservability "github.com/averos/fleamarket/internal/platform/observability"
	platformpostgres "github.com/averos/fleamarket/internal/platform/postgres"
	platformredis "github.com/averos/fleamarket/internal/platform/redis"
)

// Run boots the fleamarket HTTP API and blocks until ctx is cancelled or the
// server fails.
func Run(ctx context.Context) error {
	const serviceName = "fleamarket-api"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Duration("pending_timeout", cfg.PendingTimeout))

	db, cleanupDB := platformpostgres.ConnectOrNil(ctx, cfg.PostgresDSN, logger)
	defer cleanupDB()
	if db != nil {
		if err := migrations.Run(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	repos := buildRepositories(db)
	notifier, cleanupNotifier := buildNotifier(ctx, cfg.RedisAddr, logger)
	defer cleanupNotifier()

	coreOrderService := ordersapp.NewService(repos.orders, notifier, cfg.PendingTimeout,
		ordersapp.WithLogger(logger))
	orderService := ordersobs.New(
		coreOrderService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	catalogService := catalogapp.NewService(repos.catalog)
	cartService := cartapp.NewService(repos.cart)
	gateway := buildGateway(cfg, logger)

	engineOpts := []ordersapp.EngineOption{ordersapp.WithEngineLogger(logger)}
	if cfg.ScanInterval > 0 {
		engineOpts = append(engineOpts, ordersapp.WithScanInterval(cfg.ScanInterval))
	}
	engine := ordersapp.NewExpiryEngine(orderService, repos.orders, notifier, cfg.PendingTimeout, engineOpts...)
	engineCtx, stopEngine := context.WithCancel(ctx)
	defer stopEngine()
	go func() {
		if err := engine.Run(engineCtx); err != nil && engineCtx.Err() == nil {
			logger.Error("expiry engine stopped", slog.String("error", err.Error()))
		}
	}()

	handlers := httpapi.Handlers{
		Orders:   httpapi.NewOrdersAPI(orderService),
		Catalog:  httpapi.NewCatalogAPI(catalogService),
		Cart:     httpapi.NewCartAPI(cartService),
		Payments: httpapi.NewPaymentsAPI(orderService, gateway),
	}
	router := httpapi.NewRouter(handlers)
	router.Use(otelgin.Middleware(serviceName))

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("fleamarket API listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.String("error", err.Error()))
			return err
		}
		logger.Info("fleamarket API stopped")
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("fleamarket API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	}
}

type repositories struct {
	orders  ordersports.Repository
	catalog catalogports.Repository
	cart    cartports.Repository
}

// buildRepositories wires the postgres adapters when a connection exists and
// falls back to the in-memory set otherwise. The in-memory set shares one
// catalog and cart instance so order reservation sees the same state the
// catalog and cart services mutate.
func buildRepositories(db *gorm.DB) repositories {
	if db != nil {
		return repositories{
			orders:  orderspostgres.NewRepository(db),
			catalog: catalogpostgres.NewRepository(db),
			cart:    cartpostgres.NewRepository(db),
		}
	}
	catalogRepo := catalogmemory.NewRepository()
	cartRepo := cartmemory.NewRepository()
	return repositories{
		orders:  ordersmemory.NewRepository(catalogRepo, cartRepo),
		catalog: catalogRepo,
		cart:    cartRepo,
	}
}

// buildNotifier prefers the redis-backed expiry notifier and falls back to
// the noop notifier, which forces the expiry engine onto its polling path.
func buildNotifier(ctx context.Context, addr string, logger *slog.Logger) (ordersports.ExpiryNotifier, func()) {
	if addr == "" {
		logger.Warn("REDIS_ADDR not set, expiry falls back to polling")
		return noopexpiry.NewNotifier(), func() {}
	}
	client, err := platformredis.Connect(ctx, addr, logger)
	if err != nil {
		logger.Warn("redis unavailable, expiry falls back to polling", slog.String("error", err.Error()))
		return noopexpiry.NewNotifier(), func() {}
	}
	notifier, err := redisexpiry.NewNotifier(ctx, client)
	if err != nil {
		logger.Warn("expiry notifier setup failed, falling back to polling", slog.String("error", err.Error()))
		_ = client.Close()
		return noopexpiry.NewNotifier(), func() {}
	}
	logger.Info("redis expiry notifier enabled", slog.String("addr", addr))
	return notifier, func() { _ = notifier.Close() }
}

func buildGateway(cfg Config, logger *slog.Logger) paymentports.Gateway {
	gateway, err := paymentsandbox.NewGateway(cfg.PaymentSecret, cfg.PaymentPayPage, cfg.PaymentNotifyURL, cfg.PaymentReturnURL)
	if err != nil {
		logger.Warn("payment gateway not configured, payment sessions disabled", slog.String("error", err.Error()))
		return paymentsandbox.Disabled{}
	}
	return gateway
}
