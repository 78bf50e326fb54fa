package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/averos/fleamarket/internal/domains/cart/domain"
	"github.com/averos/fleamarket/internal/domains/cart/ports"
)

// ErrInvalidInput signals the request violated a domain invariant.
var ErrInvalidInput = errors.New("invalid cart input")

// Service orchestrates cart use cases.
type Service struct {
	repo ports.Repository
}

func NewService(repo ports.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Add(ctx context.Context, userID, productID int64, quantity int32) (*domain.Item, error) {
	item, err := domain.NewItem(userID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.repo.Put(ctx, item)
}

func (s *Service) List(ctx context.Context, userID int64) ([]*domain.Item, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, productID int64) error {
	return s.repo.Remove(ctx, userID, productID)
}

var _ ports.Service = (*Service)(nil)
