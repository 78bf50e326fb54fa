package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/averos/fleamarket/internal/domains/catalog/domain"
	"github.com/averos/fleamarket/internal/domains/catalog/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory product persistence adapter.
type Repository struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
	nextID   int64
}

func NewRepository() *Repository {
	return &Repository{products: map[int64]*domain.Product{}}
}

func (r *Repository) Save(_ context.Context, product *domain.Product) (*domain.Product, error) {
	if product == nil {
		return nil, errors.New("product is nil")
	}
	clone := *product
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if clone.ID == 0 {
		r.nextID++
		clone.ID = r.nextID
		clone.CreatedAt = now
	} else {
		if clone.ID > r.nextID {
			r.nextID = clone.ID
		}
		// Stock is the reservation ledger; a listing update carries a stale
		// snapshot of it and must not overwrite concurrent reservations.
		if existing, ok := r.products[clone.ID]; ok {
			clone.Stock = existing.Stock
			clone.CreatedAt = existing.CreatedAt
		}
	}
	clone.UpdatedAt = now
	r.products[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *product
	return &clone, nil
}

func (r *Repository) List(_ context.Context, statuses []domain.Status) ([]*domain.Product, error) {
	wanted := map[domain.Status]bool{}
	for _, status := range statuses {
		wanted[status] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Product, 0, len(r.products))
	for _, product := range r.products {
		if len(wanted) > 0 && !wanted[product.Status] {
			continue
		}
		clone := *product
		list = append(list, &clone)
	}
	return list, nil
}

// Mutate applies fn to the stored product under the repository lock. It is
// the in-memory stand-in for a row-level write lock and is used by the orders
// memory adapter to reserve and release stock atomically.
func (r *Repository) Mutate(_ context.Context, id int64, fn func(*domain.Product) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return ports.ErrNotFound
	}
	if err := fn(product); err != nil {
		return err
	}
	product.UpdatedAt = time.Now()
	return nil
}
