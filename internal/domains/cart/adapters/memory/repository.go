package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/averos/fleamarket/internal/domains/cart/domain"
	"github.com/averos/fleamarket/internal/domains/cart/ports"
)

var _ ports.Repository = (*Repository)(nil)

type key struct {
	userID    int64
	productID int64
}

// Repository is an in-memory cart persistence adapter.
type Repository struct {
	mu     sync.RWMutex
	items  map[key]*domain.Item
	nextID int64
}

func NewRepository() *Repository {
	return &Repository{items: map[key]*domain.Item{}}
}

func (r *Repository) Put(_ context.Context, item *domain.Item) (*domain.Item, error) {
	if item == nil {
		return nil, errors.New("cart item is nil")
	}
	clone := *item
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{userID: clone.UserID, productID: clone.ProductID}
	now := time.Now()
	if existing, ok := r.items[k]; ok {
		clone.ID = existing.ID
		clone.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		clone.ID = r.nextID
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	r.items[k] = &clone
	out := clone
	return &out, nil
}

func (r *Repository) ListByUser(_ context.Context, userID int64) ([]*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*domain.Item
	for k, item := range r.items {
		if k.userID != userID {
			continue
		}
		clone := *item
		list = append(list, &clone)
	}
	return list, nil
}

func (r *Repository) Remove(_ context.Context, userID, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{userID: userID, productID: productID}
	if _, ok := r.items[k]; !ok {
		return ports.ErrNotFound
	}
	delete(r.items, k)
	return nil
}
