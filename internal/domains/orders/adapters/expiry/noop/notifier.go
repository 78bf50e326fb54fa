package noop

import (
	"context"
	"time"

	"github.com/averos/fleamarket/internal/domains/orders/ports"
)

var _ ports.ExpiryNotifier = (*Notifier)(nil)

// Notifier is the degraded expiry capability used when no ephemeral store is
// configured or reachable. Every operation succeeds without effect and
// Available() is false, which routes expiration to the fallback scanner. The
// lifecycle service is identical either way.
type Notifier struct{}

func NewNotifier() *Notifier { return &Notifier{} }

func (*Notifier) Register(context.Context, int64, time.Duration) error { return nil }

func (*Notifier) Cancel(context.Context, int64) error { return nil }

// Subscribe blocks until ctx is done; there are never events to deliver.
func (*Notifier) Subscribe(ctx context.Context, _ func(int64)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (*Notifier) Available() bool { return false }

func (*Notifier) Close() error { return nil }
