package ports

import (
	"context"
	"time"
)

// ExpiryNotifier is the optional ephemeral-store capability behind order
// expiration. It is best-effort by contract: registration or removal failures
// degrade the expiry path to the fallback scanner, they never fail the order
// operation that triggered them.
type ExpiryNotifier interface {
	// Register arms a timer for the order; when it lapses without being
	// cancelled, the id is delivered to the Subscribe callback.
	Register(ctx context.Context, orderID int64, ttl time.Duration) error

	// Cancel disarms the timer. A timer that already fired or never existed
	// is a no-op.
	Cancel(ctx context.Context, orderID int64) error

	// Subscribe blocks consuming expiry events until ctx is done, invoking
	// handle once per lapsed order id.
	Subscribe(ctx context.Context, handle func(orderID int64)) error

	// Available reports whether the notifier connection is usable. The
	// fallback scanner activates exactly when this is false.
	Available() bool

	Close() error
}
