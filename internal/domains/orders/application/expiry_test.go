package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/averos/fleamarket/internal/domains/orders/domain"
	"github.com/averos/fleamarket/internal/domains/orders/ports"
)

func TestExpiryEngine_EventPathCancelsOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, 5, "10.00")
	order, err := f.service.Create(context.Background(), ports.CreateOrderInput{
		UserID:    7,
		ProductID: f.product.ID,
		Quantity:  2,
	})
	require.NoError(t, err)

	engine := NewExpiryEngine(f.service, f.repo, f.notifier, 30*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	f.notifier.events <- order.ID

	require.Eventually(t, func() bool {
		reloaded, err := f.service.GetByID(context.Background(), order.ID)
		return err == nil && reloaded.Status == domain.StatusCancelled
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, int32(5), f.stock(t))

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestExpiryEngine_EventForPaidOrderIsNoOp(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, 5, "10.00")
	order, err := f.service.Create(context.Background(), ports.CreateOrderInput{
		UserID:    7,
		ProductID: f.product.ID,
		Quantity:  2,
	})
	require.NoError(t, err)
	_, err = f.service.ConfirmPayment(context.Background(), order.ID)
	require.NoError(t, err)

	engine := NewExpiryEngine(f.service, f.repo, f.notifier, 30*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	// A late timer firing after payment confirmation must not cancel.
	f.notifier.events <- order.ID

	require.Never(t, func() bool {
		reloaded, err := f.service.GetByID(context.Background(), order.ID)
		return err != nil || reloaded.Status != domain.StatusPaid
	}, 200*time.Millisecond, 20*time.Millisecond)
	require.Equal(t, int32(3), f.stock(t))

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestExpiryEngine_FallbackScannerCancelsLapsedOrders(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, 5, "10.00")
	f.notifier.available = false
	order, err := f.service.Create(context.Background(), ports.CreateOrderInput{
		UserID:    7,
		ProductID: f.product.ID,
		Quantity:  1,
	})
	require.NoError(t, err)

	engine := NewExpiryEngine(f.service, f.repo, f.notifier, 20*time.Millisecond,
		WithScanInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	require.Eventually(t, func() bool {
		reloaded, err := f.service.GetByID(context.Background(), order.ID)
		return err == nil && reloaded.Status == domain.StatusCancelled
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, int32(5), f.stock(t))

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestScanOnce_OnlyCancelsLapsedPending(t *testing.T) {
	f := newFixture(t, 10, "10.00")

	lapsed, err := f.service.Create(context.Background(), ports.CreateOrderInput{
		UserID:    7,
		ProductID: f.product.ID,
		Quantity:  1,
	})
	require.NoError(t, err)
	paid, err := f.service.Create(context.Background(), ports.CreateOrderInput{
		UserID:    7,
		ProductID: f.product.ID,
		Quantity:  1,
	})
	require.NoError(t, err)
	_, err = f.service.ConfirmPayment(context.Background(), paid.ID)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	fresh, err := f.service.Create(context.Background(), ports.CreateOrderInput{
		UserID:    7,
		ProductID: f.product.ID,
		Quantity:  1,
	})
	require.NoError(t, err)

	engine := NewExpiryEngine(f.service, f.repo, f.notifier, 25*time.Millisecond)
	cancelled := engine.ScanOnce(context.Background())

	require.Equal(t, 1, cancelled)
	reloaded, err := f.service.GetByID(context.Background(), lapsed.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, reloaded.Status)

	reloaded, err = f.service.GetByID(context.Background(), paid.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaid, reloaded.Status)

	reloaded, err = f.service.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, reloaded.Status)
}

func TestScanOnce_EmptyStore(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	engine := NewExpiryEngine(f.service, f.repo, f.notifier, time.Minute)

	require.Zero(t, engine.ScanOnce(context.Background()))
}
