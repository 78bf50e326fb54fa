package domain

import (
	"errors"
	"time"
)

var ErrInvalidQuantity = errors.New("cart quantity must be greater than zero")

// Item is one product a user intends to order. At most one item exists per
// (user, product) pair; adding again replaces the quantity.
type Item struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewItem(userID, productID int64, quantity int32) (*Item, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Item{UserID: userID, ProductID: productID, Quantity: quantity}, nil
}
