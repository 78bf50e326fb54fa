package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/averos/fleamarket/internal/domains/catalog/domain"
	"github.com/averos/fleamarket/internal/domains/catalog/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists products in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// productRecord maps the product aggregate to a relational table. The stock
// column doubles as the reservation ledger mutated by the orders adapter.
type productRecord struct {
	ID          int64           `gorm:"primaryKey;column:id"`
	SellerID    int64           `gorm:"column:seller_id;index"`
	Title       string          `gorm:"column:title"`
	Description string          `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Stock       int32           `gorm:"column:stock"`
	Photos      pq.StringArray  `gorm:"column:photos;type:text[]"`
	Status      string          `gorm:"column:status;type:varchar(32);index"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// listingColumns are the columns Save may rewrite on an existing row. Stock
// is deliberately absent: it is the reservation ledger, mutated only by the
// orders adapter under row locks, and a listing update carries a stale
// snapshot of it.
var listingColumns = []string{"seller_id", "title", "description", "price", "photos", "status"}

// Save inserts a new product or updates an existing listing. Updates never
// touch the stock column.
func (r *Repository) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.New("product is nil")
	}
	record := toRecord(product)
	var err error
	if record.ID == 0 {
		err = r.db.WithContext(ctx).Create(&record).Error
	} else {
		err = r.db.WithContext(ctx).Model(&productRecord{ID: record.ID}).
			Select(listingColumns).Updates(&record).Error
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches a product by identifier.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record productRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// List returns products matching any of the provided statuses.
func (r *Repository) List(ctx context.Context, statuses []domain.Status) ([]*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var records []productRecord
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toDomain())
	}
	return products, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres product repository not configured")
	}
	return nil
}

func toRecord(product *domain.Product) productRecord {
	return productRecord{
		ID:          product.ID,
		SellerID:    product.SellerID,
		Title:       product.Title,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		Photos:      pq.StringArray(product.Photos),
		Status:      string(product.Status),
	}
}

func (r productRecord) toDomain() *domain.Product {
	return &domain.Product{
		ID:          r.ID,
		SellerID:    r.SellerID,
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Photos:      []string(r.Photos),
		Status:      domain.Status(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
