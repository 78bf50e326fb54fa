package ports

import (
	"context"

	"github.com/averos/fleamarket/internal/domains/orders/domain"
)

// CreateOrderInput carries everything needed to reserve stock and open an order.
type CreateOrderInput struct {
	UserID        int64
	ProductID     int64
	Quantity      int32
	Address       string
	PaymentMethod string
}

// Service is the order lifecycle contract consumed by transport, the expiry
// engine, and payment callbacks alike.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	Cancel(ctx context.Context, id int64) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, id int64) (*domain.Order, error)
	Ship(ctx context.Context, id int64) (*domain.Order, error)
	Complete(ctx context.Context, id int64) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
}
