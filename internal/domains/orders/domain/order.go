package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates order progression. Transitions are monotonic: once an
// order leaves pending it can never return to it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
	// ErrInvalidState signals a transition the current status forbids.
	ErrInvalidState = errors.New("order status does not allow this transition")
)

// Order models a purchase of a single product with price captured at
// creation time. UnitPrice and TotalPrice are snapshots; later price changes
// on the product never affect an existing order.
type Order struct {
	ID            int64
	OrderNo       string
	UserID        int64
	ProductID     int64
	Quantity      int32
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	Status        Status
	Address       string
	PaymentMethod string
	CreatedAt     time.Time
	PaidAt        *time.Time
	ShippedAt     *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
}

// NewOrder validates and constructs a pending order without a price snapshot.
// SnapshotPrice must be called once the product price is known, inside the
// reservation transaction.
func NewOrder(userID, productID int64, quantity int32, address, paymentMethod string) (*Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Order{
		OrderNo:       NewOrderNo(),
		UserID:        userID,
		ProductID:     productID,
		Quantity:      quantity,
		Status:        StatusPending,
		Address:       address,
		PaymentMethod: paymentMethod,
	}, nil
}

// SnapshotPrice freezes the unit price and derives the total. It is applied
// exactly once, at reservation time.
func (o *Order) SnapshotPrice(unit decimal.Decimal) error {
	if unit.IsNegative() {
		return ErrInvalidPrice
	}
	o.UnitPrice = unit
	o.TotalPrice = unit.Mul(decimal.NewFromInt32(o.Quantity))
	return nil
}

// MarkPaid transitions pending -> paid. Calling it on an already paid order
// is an idempotent no-op so duplicate payment callbacks stay harmless.
func (o *Order) MarkPaid(now time.Time) error {
	if o.Status == StatusPaid {
		return nil
	}
	if o.Status != StatusPending {
		return o.invalidState("pay")
	}
	o.Status = StatusPaid
	o.PaidAt = &now
	return nil
}

// Cancel transitions pending -> cancelled. Only pending orders may be
// cancelled; the caller is expected to restore reserved stock in the same
// transaction.
func (o *Order) Cancel(now time.Time) error {
	if o.Status != StatusPending {
		return o.invalidState("cancel")
	}
	o.Status = StatusCancelled
	o.CancelledAt = &now
	return nil
}

// MarkShipped transitions paid -> shipped.
func (o *Order) MarkShipped(now time.Time) error {
	if o.Status != StatusPaid {
		return o.invalidState("ship")
	}
	o.Status = StatusShipped
	o.ShippedAt = &now
	return nil
}

// MarkCompleted transitions shipped -> completed.
func (o *Order) MarkCompleted(now time.Time) error {
	if o.Status != StatusShipped {
		return o.invalidState("complete")
	}
	o.Status = StatusCompleted
	o.CompletedAt = &now
	return nil
}

func (o *Order) invalidState(action string) error {
	return fmt.Errorf("%w: cannot %s order %s in status %q", ErrInvalidState, action, o.OrderNo, o.Status)
}

// NewOrderNo generates an externally-facing order number: a second-resolution
// timestamp plus a random suffix, unique and unguessable.
func NewOrderNo() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return time.Now().UTC().Format("20060102150405") + strings.ToUpper(suffix)
}
