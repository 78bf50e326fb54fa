package migrations

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Intended to replace
// adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&productRecord{},
		&orderRecord{},
		&cartItemRecord{},
	)
}

// Product schema mirrors the catalog Postgres adapter. The stock column is
// the reservation ledger mutated by the orders adapter under row locks.
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

// Order schema mirrors the orders Postgres adapter.
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

// Cart schema mirrors the cart Postgres adapter.
type cartItemRecord struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	UserID    int64     `gorm:"column:user_id;uniqueIndex:idx_cart_user_product"`
	ProductID int64     `gorm:"column:product_id;uniqueIndex:idx_cart_user_product"`
	Quantity  int32     `gorm:"column:quantity"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (cartItemRecord) TableName() string { return "cart_items" }
