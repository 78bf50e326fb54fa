package redis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 3
	connectBackoff  = 500 * time.Millisecond
)

// Connect dials Redis with a bounded number of retries. An ephemeral store is
// an optional capability here, so the caller decides what an error means;
// typically it means running without the expiry notifier.
func Connect(ctx context.Context, addr string, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: strings.TrimSpace(addr)})
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			if logger != nil {
				logger.Info("redis connection established", slog.String("addr", addr))
			}
			return client, nil
		}
		if logger != nil {
			logger.Warn("redis ping failed",
				slog.String("addr", addr),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(connectBackoff * time.Duration(attempt)):
		}
	}
	_ = client.Close()
	return nil, err
}
