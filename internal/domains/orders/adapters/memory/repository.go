package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	cartmemory "github.com/averos/fleamarket/internal/domains/cart/adapters/memory"
	catalogmemory "github.com/averos/fleamarket/internal/domains/catalog/adapters/memory"
	catalogdomain "github.com/averos/fleamarket/internal/domains/catalog/domain"
	catalogports "github.com/averos/fleamarket/internal/domains/catalog/ports"
	"github.com/averos/fleamarket/internal/domains/orders/domain"
	"github.com/averos/fleamarket/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order persistence adapter. A single mutex
// serializes every stock-mutating operation, standing in for the row-level
// transaction of the Postgres adapter: the crucial property — check, mutate,
// and insert happen atomically — is identical.
type Repository struct {
	mu       sync.Mutex
	orders   map[int64]*domain.Order
	nextID   int64
	products *catalogmemory.Repository
	carts    *cartmemory.Repository
}

// NewRepository wires the adapter against its in-memory collaborators. carts
// may be nil when cart cleanup is not needed.
func NewRepository(products *catalogmemory.Repository, carts *cartmemory.Repository) *Repository {
	return &Repository{
		orders:   map[int64]*domain.Order{},
		products: products,
		carts:    carts,
	}
}

func (r *Repository) CreateReserved(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *order
	err := r.products.Mutate(ctx, clone.ProductID, func(product *catalogdomain.Product) error {
		if product.Stock < clone.Quantity {
			return fmt.Errorf("%w: requested %d, available %d",
				ports.ErrInsufficientStock, clone.Quantity, product.Stock)
		}
		if err := clone.SnapshotPrice(product.Price); err != nil {
			return err
		}
		product.Stock -= clone.Quantity
		return nil
	})
	if err != nil {
		if errors.Is(err, catalogports.ErrNotFound) {
			return nil, ports.ErrProductNotFound
		}
		return nil, err
	}
	if r.carts != nil {
		_ = r.carts.Remove(ctx, clone.UserID, clone.ProductID)
	}
	r.nextID++
	clone.ID = r.nextID
	clone.CreatedAt = time.Now()
	r.orders[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *Repository) CancelAndRestock(ctx context.Context, id int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	// Mutate a copy first so a failed restock leaves the order untouched,
	// mirroring the transactional rollback of the Postgres adapter.
	clone := *order
	if err := clone.Cancel(time.Now()); err != nil {
		return nil, err
	}
	err := r.products.Mutate(ctx, clone.ProductID, func(product *catalogdomain.Product) error {
		product.Stock += clone.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	*order = clone
	out := clone
	return &out, nil
}

func (r *Repository) ConfirmPayment(_ context.Context, id int64) (*domain.Order, error) {
	return r.mutate(id, func(order *domain.Order) error {
		return order.MarkPaid(time.Now())
	})
}

func (r *Repository) MarkShipped(_ context.Context, id int64) (*domain.Order, error) {
	return r.mutate(id, func(order *domain.Order) error {
		return order.MarkShipped(time.Now())
	})
}

func (r *Repository) MarkCompleted(_ context.Context, id int64) (*domain.Order, error) {
	return r.mutate(id, func(order *domain.Order) error {
		return order.MarkCompleted(time.Now())
	})
}

func (r *Repository) mutate(id int64, apply func(*domain.Order) error) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if err := apply(order); err != nil {
		return nil, err
	}
	clone := *order
	return &clone, nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *Repository) GetByOrderNo(_ context.Context, orderNo string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.OrderNo == orderNo {
			clone := *order
			return &clone, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *Repository) ListByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*domain.Order
	for _, order := range r.orders {
		if order.UserID != userID {
			continue
		}
		clone := *order
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *Repository) FindExpiredPending(_ context.Context, cutoff time.Time) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*domain.Order
	for _, order := range r.orders {
		if order.Status == domain.StatusPending && order.CreatedAt.Before(cutoff) {
			clone := *order
			list = append(list, &clone)
		}
	}
	return list, nil
}
