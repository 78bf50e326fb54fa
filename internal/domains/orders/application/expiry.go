package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/averos/fleamarket/internal/domains/orders/domain"
	"github.com/averos/fleamarket/internal/domains/orders/ports"
)

// DefaultScanInterval bounds staleness on the fallback path: an expired order
// is cancelled at most one interval after its timeout elapses.
const DefaultScanInterval = time.Second

// ExpiryEngine cancels unpaid orders once their pending timeout lapses. Two
// strategies cooperate: the event-driven path consumes notifier expiry events
// for near-real-time cancellation; the polling fallback scans the order store
// directly and runs only while the notifier is unavailable. Both funnel into
// the same state-guarded Cancel, so duplicate or late triggers are no-ops.
type ExpiryEngine struct {
	service        ports.Service
	repo           ports.Repository
	notifier       ports.ExpiryNotifier
	pendingTimeout time.Duration
	scanInterval   time.Duration
	logger         *slog.Logger
}

type EngineOption func(*ExpiryEngine)

func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *ExpiryEngine) {
		e.logger = logger
	}
}

// WithScanInterval overrides the fallback polling cadence.
func WithScanInterval(interval time.Duration) EngineOption {
	return func(e *ExpiryEngine) {
		if interval > 0 {
			e.scanInterval = interval
		}
	}
}

func NewExpiryEngine(
	service ports.Service,
	repo ports.Repository,
	notifier ports.ExpiryNotifier,
	pendingTimeout time.Duration,
	opts ...EngineOption,
) *ExpiryEngine {
	e := &ExpiryEngine{
		service:        service,
		repo:           repo,
		notifier:       notifier,
		pendingTimeout: pendingTimeout,
		scanInterval:   DefaultScanInterval,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Run blocks until ctx is done. When the notifier is available it consumes
// its expiry events; otherwise, or once the subscription drops, it falls back
// to polling. The two paths never run at the same time.
func (e *ExpiryEngine) Run(ctx context.Context) error {
	if e.notifier.Available() {
		e.logger.Info("expiry engine consuming notifier events")
		err := e.notifier.Subscribe(ctx, func(orderID int64) {
			e.expire(ctx, orderID)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			e.logger.Warn("expiry event subscription lost, switching to fallback scanner",
				slog.String("error", err.Error()))
		}
	} else {
		e.logger.Info("expiry notifier unavailable, starting fallback scanner",
			slog.Duration("interval", e.scanInterval))
	}
	return e.scanLoop(ctx)
}

func (e *ExpiryEngine) scanLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.ScanOnce(ctx)
		}
	}
}

// ScanOnce cancels every pending order older than the timeout. A failure on
// one order never aborts the rest of the batch.
func (e *ExpiryEngine) ScanOnce(ctx context.Context) int {
	cutoff := time.Now().Add(-e.pendingTimeout)
	expired, err := e.repo.FindExpiredPending(ctx, cutoff)
	if err != nil {
		e.logger.Error("expired order scan failed", slog.String("error", err.Error()))
		return 0
	}
	cancelled := 0
	for _, order := range expired {
		if e.expire(ctx, order.ID) {
			cancelled++
		}
	}
	return cancelled
}

// expire runs the idempotent cancellation for a lapsed order. Losing the race
// against payment confirmation is the expected benign outcome, logged at info.
func (e *ExpiryEngine) expire(ctx context.Context, orderID int64) bool {
	order, err := e.service.Cancel(ctx, orderID)
	switch {
	case err == nil:
		e.logger.Info("order expired and cancelled, stock restored",
			slog.Int64("order.id", order.ID), slog.String("order.no", order.OrderNo))
		return true
	case errors.Is(err, domain.ErrInvalidState):
		e.logger.Info("expiry skipped, order already finalized", slog.Int64("order.id", orderID))
	case errors.Is(err, ports.ErrNotFound):
		e.logger.Info("expiry skipped, order no longer exists", slog.Int64("order.id", orderID))
	default:
		// The timer already fired; there is nothing to retry against.
		e.logger.Error("expiry cancellation failed",
			slog.Int64("order.id", orderID), slog.String("error", err.Error()))
	}
	return false
}
