package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/averos/fleamarket/internal/domains/cart/domain"
	"github.com/averos/fleamarket/internal/domains/cart/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists cart items in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type cartItemRecord struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	UserID    int64     `gorm:"column:user_id;uniqueIndex:idx_cart_user_product"`
	ProductID int64     `gorm:"column:product_id;uniqueIndex:idx_cart_user_product"`
	Quantity  int32     `gorm:"column:quantity"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (cartItemRecord) TableName() string { return "cart_items" }

// Put upserts the item for its (user, product) pair.
func (r *Repository) Put(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.New("cart item is nil")
	}
	record := cartItemRecord{UserID: item.UserID, ProductID: item.ProductID, Quantity: item.Quantity}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&record).Error; err != nil {
		return nil, err
	}
	var saved cartItemRecord
	if err := r.db.WithContext(ctx).
		First(&saved, "user_id = ? AND product_id = ?", item.UserID, item.ProductID).Error; err != nil {
		return nil, err
	}
	return saved.toDomain(), nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*domain.Item, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []cartItemRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, err
	}
	items := make([]*domain.Item, 0, len(records))
	for i := range records {
		items = append(items, records[i].toDomain())
	}
	return items, nil
}

func (r *Repository) Remove(ctx context.Context, userID, productID int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Delete(&cartItemRecord{}, "user_id = ? AND product_id = ?", userID, productID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres cart repository not configured")
	}
	return nil
}

func (r cartItemRecord) toDomain() *domain.Item {
	return &domain.Item{
		ID:        r.ID,
		UserID:    r.UserID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
