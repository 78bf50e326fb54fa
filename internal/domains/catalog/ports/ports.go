package ports

import (
	"context"
	"errors"

	"github.com/averos/fleamarket/internal/domains/catalog/domain"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

// Repository persists product listings. Stock mutation is deliberately absent
// here: only the orders core touches stock, inside its own locked transactions.
type Repository interface {
	Save(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, statuses []domain.Status) ([]*domain.Product, error)
}

// Service exposes catalog use cases to transport.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, statuses []string) ([]*domain.Product, error)
	Reprice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error)
	Pull(ctx context.Context, id int64) (*domain.Product, error)
}

type CreateProductInput struct {
	SellerID    int64
	Title       string
	Description string
	Price       decimal.Decimal
	Stock       int32
	Photos      []string
}
