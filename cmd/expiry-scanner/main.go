// Command expiry-scanner runs one sweep of the pending-order expiry scanner
// and exits. It exists for deployments without the long-running API process,
// for example a cron job backstopping the event-driven notifier.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/averos/fleamarket/internal/app/api"
	ordersexpiry "github.com/averos/fleamarket/internal/domains/orders/adapters/expiry/noop"
	orderspostgres "github.com/averos/fleamarket/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/averos/fleamarket/internal/domains/orders/application"
	platformpostgres "github.com/averos/fleamarket/internal/platform/postgres"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("expiry-scanner: %v", err)
	}

	db, cleanup := platformpostgres.ConnectOrNil(ctx, cfg.PostgresDSN, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot scan for expired orders")
	}

	repo := orderspostgres.NewRepository(db)
	notifier := ordersexpiry.NewNotifier()
	service := ordersapp.NewService(repo, notifier, cfg.PendingTimeout, ordersapp.WithLogger(logger))
	engine := ordersapp.NewExpiryEngine(service, repo, notifier, cfg.PendingTimeout,
		ordersapp.WithEngineLogger(logger))

	expired := engine.ScanOnce(ctx)
	logger.Info("expiry scan completed", slog.Int("orders_cancelled", expired))
}
