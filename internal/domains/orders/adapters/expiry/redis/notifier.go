package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/averos/fleamarket/internal/domains/orders/ports"
)

var _ ports.ExpiryNotifier = (*Notifier)(nil)

// keyPrefix namespaces expiry timer keys; the value is a sentinel, only the
// key's TTL matters.
const keyPrefix = "orders:expiry:"

// expiredEventPattern matches Redis keyspace notifications for lapsed keys
// on any database.
const expiredEventPattern = "__keyevent@*__:expired"

// Notifier implements the expiry timer on Redis key TTLs plus keyspace
// notifications. It is constructed explicitly by bootstrap and injected; the
// client's lifecycle (connect, retry, close) is owned here, never by a
// package-level singleton.
type Notifier struct {
	client    *redis.Client
	available atomic.Bool
}

// NewNotifier verifies connectivity and enables expired-key events. The
// returned notifier reports Available() == true only after both succeed.
func NewNotifier(ctx context.Context, client *redis.Client) (*Notifier, error) {
	n := &Notifier{client: client}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	// Keyspace notifications are off by default; "Ex" covers expired events.
	if err := client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		return nil, fmt.Errorf("enable keyspace notifications: %w", err)
	}
	n.available.Store(true)
	return n, nil
}

// Register arms a TTL key for the order.
func (n *Notifier) Register(ctx context.Context, orderID int64, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	return n.client.Set(ctx, key(orderID), 1, ttl).Err()
}

// Cancel disarms the timer. Deleting a missing key is a no-op by Redis
// semantics, which is exactly the contract.
func (n *Notifier) Cancel(ctx context.Context, orderID int64) error {
	return n.client.Del(ctx, key(orderID)).Err()
}

// Subscribe consumes expired-key events until ctx is done. A closed event
// channel marks the connection lost: availability flips off so the fallback
// scanner takes over.
func (n *Notifier) Subscribe(ctx context.Context, handle func(orderID int64)) error {
	pubsub := n.client.PSubscribe(ctx, expiredEventPattern)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		n.available.Store(false)
		return fmt.Errorf("subscribe expired events: %w", err)
	}
	events := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-events:
			if !ok {
				n.available.Store(false)
				return fmt.Errorf("expired event stream closed")
			}
			if orderID, ok := parseKey(msg.Payload); ok {
				handle(orderID)
			}
		}
	}
}

// Available reports whether the notifier connection is usable.
func (n *Notifier) Available() bool {
	return n.available.Load()
}

func (n *Notifier) Close() error {
	n.available.Store(false)
	return n.client.Close()
}

func key(orderID int64) string {
	return keyPrefix + strconv.FormatInt(orderID, 10)
}

// parseKey extracts the order id from an expired key, ignoring keys outside
// this notifier's namespace.
func parseKey(expiredKey string) (int64, bool) {
	raw, found := strings.CutPrefix(expiredKey, keyPrefix)
	if !found {
		return 0, false
	}
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return orderID, true
}
