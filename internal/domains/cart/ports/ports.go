package ports

import (
	"context"
	"errors"

	"github.com/averos/fleamarket/internal/domains/cart/domain"
)

var ErrNotFound = errors.New("cart item not found")

// Repository persists cart items keyed by (user, product).
type Repository interface {
	Put(ctx context.Context, item *domain.Item) (*domain.Item, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Item, error)
	Remove(ctx context.Context, userID, productID int64) error
}

// Service exposes cart use cases to transport.
type Service interface {
	Add(ctx context.Context, userID, productID int64, quantity int32) (*domain.Item, error)
	List(ctx context.Context, userID int64) ([]*domain.Item, error)
	Remove(ctx context.Context, userID, productID int64) error
}
