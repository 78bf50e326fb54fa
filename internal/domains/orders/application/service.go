package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/averos/fleamarket/internal/domains/orders/domain"
	"github.com/averos/fleamarket/internal/domains/orders/ports"
)

// Service orchestrates the order lifecycle: transactional stock reservation
// at creation, state-guarded cancellation and payment confirmation, and the
// best-effort expiry timer around all three.
type Service struct {
	repo           ports.Repository
	notifier       ports.ExpiryNotifier
	pendingTimeout time.Duration
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService wires the lifecycle service. pendingTimeout bounds how long an
// order may stay pending before automatic cancellation.
func NewService(repo ports.Repository, notifier ports.ExpiryNotifier, pendingTimeout time.Duration, opts ...Option) *Service {
	s := &Service{
		repo:           repo,
		notifier:       notifier,
		pendingTimeout: pendingTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create reserves stock and inserts the order in one transaction, then arms
// the expiry timer. Timer registration failure degrades expiry to the
// fallback scanner and is never surfaced to the caller.
func (s *Service) Create(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	order, err := domain.NewOrder(input.UserID, input.ProductID, input.Quantity, input.Address, input.PaymentMethod)
	if err != nil {
		return nil, mapError(err)
	}
	created, err := s.repo.CreateReserved(ctx, order)
	if err != nil {
		return nil, mapError(err)
	}
	if err := s.notifier.Register(ctx, created.ID, s.pendingTimeout); err != nil {
		s.logger.Warn("expiry timer registration failed, relying on fallback scanner",
			slog.Int64("order.id", created.ID), slog.String("error", err.Error()))
	}
	return created, nil
}

// Cancel releases the reservation and finalizes the order as cancelled. It is
// idempotent in effect: any number of triggers (user action, expiry event,
// fallback scan) may call it; losers of the race observe ErrInvalidState.
func (s *Service) Cancel(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.repo.CancelAndRestock(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	s.dropTimer(ctx, id)
	return order, nil
}

// ConfirmPayment finalizes payment for the order. Confirming an already paid
// order succeeds without side effects, which absorbs duplicate delivery of
// asynchronous and synchronous payment callbacks.
func (s *Service) ConfirmPayment(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.repo.ConfirmPayment(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	s.dropTimer(ctx, id)
	return order, nil
}

// Ship transitions a paid order to shipped.
func (s *Service) Ship(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.repo.MarkShipped(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

// Complete transitions a shipped order to completed.
func (s *Service) Complete(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.repo.MarkCompleted(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

func (s *Service) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	order, err := s.repo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

// dropTimer removes the expiry timer so a late firing cannot race a
// finalized order. Removal failures only cost a benign extra cancellation
// attempt later, so they are logged and absorbed.
func (s *Service) dropTimer(ctx context.Context, id int64) {
	if err := s.notifier.Cancel(ctx, id); err != nil {
		s.logger.Warn("expiry timer removal failed",
			slog.Int64("order.id", id), slog.String("error", err.Error()))
	}
}

var _ ports.Service = (*Service)(nil)
