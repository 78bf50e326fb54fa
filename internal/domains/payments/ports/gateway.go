package ports

import (
	"context"
	"errors"
	"net/url"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured is returned when credentials or callback URLs are missing.
	ErrNotConfigured = errors.New("payment gateway not configured")
	ErrInvalidAmount = errors.New("payment amount must be positive")
)

// Acknowledgment tokens the provider expects from the asynchronous
// notification endpoint.
const (
	AckSuccess = "success"
	AckFailure = "failure"
)

// Session is a redirectable payment artifact for one order.
type Session struct {
	OrderNo string
	Amount  decimal.Decimal
	Subject string
	// PayURL is where the client is redirected to complete payment.
	PayURL string
}

// Gateway is the external payment provider collaborator. The marketplace
// never trusts a payment-success signal without VerifyCallback passing.
type Gateway interface {
	CreateSession(ctx context.Context, orderNo string, amount decimal.Decimal, subject string) (*Session, error)
	// VerifyCallback validates the signature on a provider callback payload.
	// Both the asynchronous webhook and the synchronous return use it.
	VerifyCallback(values url.Values) bool
}
