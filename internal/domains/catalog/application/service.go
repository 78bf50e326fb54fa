package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/averos/fleamarket/internal/domains/catalog/domain"
	"github.com/averos/fleamarket/internal/domains/catalog/ports"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput signals the request violated a domain invariant.
var ErrInvalidInput = errors.New("invalid product input")

// Service orchestrates catalog use cases.
type Service struct {
	repo ports.Repository
}

func NewService(repo ports.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, input ports.CreateProductInput) (*domain.Product, error) {
	product, err := domain.NewProduct(input.SellerID, input.Title, input.Description, input.Price, input.Stock, input.Photos)
	if err != nil {
		return nil, mapError(err)
	}
	return s.repo.Save(ctx, product)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, statuses []string) ([]*domain.Product, error) {
	converted := make([]domain.Status, 0, len(statuses))
	for _, status := range statuses {
		converted = append(converted, domain.Status(status))
	}
	if len(converted) == 0 {
		converted = []domain.Status{domain.StatusReleased}
	}
	return s.repo.List(ctx, converted)
}

func (s *Service) Reprice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := product.Reprice(price); err != nil {
		return nil, mapError(err)
	}
	return s.repo.Save(ctx, product)
}

func (s *Service) Pull(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Pull()
	return s.repo.Save(ctx, product)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyTitle) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrInvalidStock) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

var _ ports.Service = (*Service)(nil)
