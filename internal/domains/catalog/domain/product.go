package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates listing visibility.
type Status string

const (
	StatusReleased Status = "released"
	StatusPulled   Status = "pulled"
)

var (
	ErrEmptyTitle   = errors.New("product title must not be empty")
	ErrInvalidPrice = errors.New("product price must not be negative")
	ErrInvalidStock = errors.New("product stock must not be negative")
)

// Product models a second-hand listing. Stock is the reservation ledger: the
// orders core decrements it inside locked transactions and every decrement
// has a matching increment on cancellation.
type Product struct {
	ID          int64
	SellerID    int64
	Title       string
	Description string
	Price       decimal.Decimal
	Stock       int32
	Photos      []string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProduct validates and constructs a released listing.
func NewProduct(sellerID int64, title, description string, price decimal.Decimal, stock int32, photos []string) (*Product, error) {
	p := &Product{
		SellerID:    sellerID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Price:       price,
		Stock:       stock,
		Photos:      photos,
		Status:      StatusReleased,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate enforces invariants on the aggregate.
func (p *Product) Validate() error {
	if p.Title == "" {
		return ErrEmptyTitle
	}
	if p.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

// Reprice changes the listing price. Existing orders keep their snapshot.
func (p *Product) Reprice(price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	p.Price = price
	return nil
}

// Pull hides the listing from browsing. Reserved stock is unaffected.
func (p *Product) Pull() {
	p.Status = StatusPulled
}
