package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/averos/fleamarket/internal/domains/orders/domain"
	"github.com/averos/fleamarket/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM. All stock-mutating
// methods run inside a transaction that takes a SELECT ... FOR UPDATE lock on
// the product row, so reservations for the same product serialize while
// different products proceed independently.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// orderRecord maps the order aggregate to a relational table.
type orderRecord struct {
	ID            int64           `gorm:"primaryKey;column:id"`
	OrderNo       string          `gorm:"column:order_no;size:64;uniqueIndex"`
	UserID        int64           `gorm:"column:user_id;index"`
	ProductID     int64           `gorm:"column:product_id;index"`
	Quantity      int32           `gorm:"column:quantity"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(12,2)"`
	Status        string          `gorm:"column:status;type:varchar(32);index:idx_orders_status_created"`
	Address       string          `gorm:"column:address"`
	PaymentMethod string          `gorm:"column:payment_method;size:32"`
	CreatedAt     time.Time       `gorm:"column:created_at;index:idx_orders_status_created"`
	PaidAt        *time.Time      `gorm:"column:paid_at"`
	ShippedAt     *time.Time      `gorm:"column:shipped_at"`
	CompletedAt   *time.Time      `gorm:"column:completed_at"`
	CancelledAt   *time.Time      `gorm:"column:cancelled_at"`
}

func (orderRecord) TableName() string { return "orders" }

// productRow is the slice of the products table this adapter locks and
// mutates. The catalog adapter owns the full schema.
type productRow struct {
	ID    int64           `gorm:"primaryKey;column:id"`
	Price decimal.Decimal `gorm:"column:price"`
	Stock int32           `gorm:"column:stock"`
}

func (productRow) TableName() string { return "products" }

// CreateReserved reserves stock and inserts the order atomically: lock the
// product row, verify stock, decrement it, drop the matching cart entry,
// snapshot the price, insert. Any failure before commit rolls everything back.
func (r *Repository) CreateReserved(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	var record orderRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product productRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, "id = ?", order.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrProductNotFound
			}
			return err
		}
		if product.Stock < order.Quantity {
			return fmt.Errorf("%w: requested %d, available %d",
				ports.ErrInsufficientStock, order.Quantity, product.Stock)
		}
		if err := tx.Model(&productRow{}).Where("id = ?", product.ID).
			Update("stock", gorm.Expr("stock - ?", order.Quantity)).Error; err != nil {
			return err
		}
		// Best-effort cart cleanup rides the same transaction.
		if err := tx.Exec("DELETE FROM cart_items WHERE user_id = ? AND product_id = ?",
			order.UserID, order.ProductID).Error; err != nil {
			return err
		}
		if err := order.SnapshotPrice(product.Price); err != nil {
			return err
		}
		record = toRecord(order)
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// CancelAndRestock applies pending -> cancelled and returns the reserved
// quantity to the product row under the same lock discipline as creation.
func (r *Repository) CancelAndRestock(ctx context.Context, id int64) (*domain.Order, error) {
	return r.transition(ctx, id, func(tx *gorm.DB, order *domain.Order) error {
		if err := order.Cancel(time.Now()); err != nil {
			return err
		}
		var product productRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, "id = ?", order.ProductID).Error; err != nil {
			return err
		}
		return tx.Model(&productRow{}).Where("id = ?", product.ID).
			Update("stock", gorm.Expr("stock + ?", order.Quantity)).Error
	})
}

// ConfirmPayment applies pending -> paid. An order that is already paid is
// returned unchanged so duplicate callbacks stay idempotent.
func (r *Repository) ConfirmPayment(ctx context.Context, id int64) (*domain.Order, error) {
	return r.transition(ctx, id, func(_ *gorm.DB, order *domain.Order) error {
		return order.MarkPaid(time.Now())
	})
}

func (r *Repository) MarkShipped(ctx context.Context, id int64) (*domain.Order, error) {
	return r.transition(ctx, id, func(_ *gorm.DB, order *domain.Order) error {
		return order.MarkShipped(time.Now())
	})
}

func (r *Repository) MarkCompleted(ctx context.Context, id int64) (*domain.Order, error) {
	return r.transition(ctx, id, func(_ *gorm.DB, order *domain.Order) error {
		return order.MarkCompleted(time.Now())
	})
}

// transition loads the order under a row lock, applies the guarded domain
// mutation, and persists the result. The order-row lock makes racing
// cancellation and confirmation resolve to exactly one winner; the loser's
// guard fails and the transaction rolls back untouched.
func (r *Repository) transition(
	ctx context.Context,
	id int64,
	apply func(tx *gorm.DB, order *domain.Order) error,
) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var result *domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record orderRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&record, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrNotFound
			}
			return err
		}
		order := record.toDomain()
		if err := apply(tx, order); err != nil {
			return err
		}
		updated := toRecord(order)
		if err := tx.Model(&orderRecord{}).Where("id = ?", id).
			Select("status", "paid_at", "shipped_at", "completed_at", "cancelled_at").
			Updates(&updated).Error; err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID fetches an order by identifier.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getBy(ctx, "id = ?", id)
}

// GetByOrderNo fetches an order by its external number, as payment callbacks do.
func (r *Repository) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	return r.getBy(ctx, "order_no = ?", orderNo)
}

func (r *Repository) getBy(ctx context.Context, query string, arg any) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// ListByUser returns a user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return toDomainList(records), nil
}

// FindExpiredPending returns pending orders created before the cutoff.
func (r *Repository) FindExpiredPending(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(domain.StatusPending), cutoff).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return toDomainList(records), nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	return orderRecord{
		ID:            order.ID,
		OrderNo:       order.OrderNo,
		UserID:        order.UserID,
		ProductID:     order.ProductID,
		Quantity:      order.Quantity,
		UnitPrice:     order.UnitPrice,
		TotalPrice:    order.TotalPrice,
		Status:        string(order.Status),
		Address:       order.Address,
		PaymentMethod: order.PaymentMethod,
		PaidAt:        order.PaidAt,
		ShippedAt:     order.ShippedAt,
		CompletedAt:   order.CompletedAt,
		CancelledAt:   order.CancelledAt,
	}
}

func toDomainList(records []orderRecord) []*domain.Order {
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders
}

func (r orderRecord) toDomain() *domain.Order {
	return &domain.Order{
		ID:            r.ID,
		OrderNo:       r.OrderNo,
		UserID:        r.UserID,
		ProductID:     r.ProductID,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		TotalPrice:    r.TotalPrice,
		Status:        domain.Status(r.Status),
		Address:       r.Address,
		PaymentMethod: r.PaymentMethod,
		CreatedAt:     r.CreatedAt,
		PaidAt:        r.PaidAt,
		ShippedAt:     r.ShippedAt,
		CompletedAt:   r.CompletedAt,
		CancelledAt:   r.CancelledAt,
	}
}
