package ports

import (
	"context"
	"errors"
	"time"

	"github.com/averos/fleamarket/internal/domains/orders/domain"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrProductNotFound is raised when the reservation target does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock is raised when the requested quantity exceeds the
	// available stock at reservation time. Client-correctable, never retried.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Repository persists orders. Every stock-mutating method runs as a single
// transaction holding a pessimistic write lock on the product row, so
// concurrent reservations for the same product serialize and a rollback
// leaves stock and orders untouched as a pair.
type Repository interface {
	// CreateReserved locks the product row, verifies and decrements stock,
	// removes any cart entry for the (user, product) pair, snapshots the
	// price onto the order, and inserts it — all in one transaction.
	CreateReserved(ctx context.Context, order *domain.Order) (*domain.Order, error)

	// CancelAndRestock applies the pending -> cancelled transition and
	// restores the reserved stock in the same transaction. Returns
	// domain.ErrInvalidState when the order already left pending.
	CancelAndRestock(ctx context.Context, id int64) (*domain.Order, error)

	// ConfirmPayment applies the pending -> paid transition. Confirming an
	// already paid order returns it unchanged.
	ConfirmPayment(ctx context.Context, id int64) (*domain.Order, error)

	MarkShipped(ctx context.Context, id int64) (*domain.Order, error)
	MarkCompleted(ctx context.Context, id int64) (*domain.Order, error)

	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)

	// FindExpiredPending returns orders still pending that were created
	// before the cutoff. Used by the fallback expiration scanner.
	FindExpiredPending(ctx context.Context, cutoff time.Time) ([]*domain.Order, error)
}
