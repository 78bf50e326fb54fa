// Package sandbox implements the payment gateway contract against a
// provider-less sandbox: sessions point at a static pay page and callbacks
// are validated with an HMAC shared secret. It stands in for a real provider
// in development and in tests.
package sandbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/averos/fleamarket/internal/domains/payments/ports"
)

var _ ports.Gateway = (*Gateway)(nil)

const signParam = "sign"

// Gateway signs outgoing sessions and verifies incoming callbacks with a
// shared HMAC-SHA256 secret.
type Gateway struct {
	secret    []byte
	payPage   string
	notifyURL string
	returnURL string
}

// NewGateway requires the shared secret and both callback URLs; a gateway
// without them cannot produce a usable session.
func NewGateway(secret, payPage, notifyURL, returnURL string) (*Gateway, error) {
	if strings.TrimSpace(secret) == "" ||
		strings.TrimSpace(notifyURL) == "" ||
		strings.TrimSpace(returnURL) == "" {
		return nil, ports.ErrNotConfigured
	}
	if strings.TrimSpace(payPage) == "" {
		payPage = "https://sandbox.pay.example.com/gateway"
	}
	return &Gateway{
		secret:    []byte(secret),
		payPage:   payPage,
		notifyURL: notifyURL,
		returnURL: returnURL,
	}, nil
}

var _ ports.Gateway = Disabled{}

// Disabled is the gateway used when no payment secret is configured. Every
// session attempt fails and no callback ever verifies.
type Disabled struct{}

func (Disabled) CreateSession(context.Context, string, decimal.Decimal, string) (*ports.Session, error) {
	return nil, ports.ErrNotConfigured
}

func (Disabled) VerifyCallback(url.Values) bool { return false }

// CreateSession builds a signed, redirectable payment URL for the order.
func (g *Gateway) CreateSession(_ context.Context, orderNo string, amount decimal.Decimal, subject string) (*ports.Session, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidAmount, amount)
	}
	params := url.Values{}
	params.Set("out_trade_no", orderNo)
	params.Set("total_amount", amount.StringFixed(2))
	params.Set("subject", subject)
	params.Set("notify_url", g.notifyURL)
	params.Set("return_url", g.returnURL)
	params.Set(signParam, g.sign(params))
	return &ports.Session{
		OrderNo: orderNo,
		Amount:  amount,
		Subject: subject,
		PayURL:  g.payPage + "?" + params.Encode(),
	}, nil
}

// VerifyCallback recomputes the signature over the payload and compares it in
// constant time.
func (g *Gateway) VerifyCallback(values url.Values) bool {
	provided := values.Get(signParam)
	if provided == "" {
		return false
	}
	return hmac.Equal([]byte(provided), []byte(g.sign(values)))
}

// sign computes HMAC-SHA256 over the sorted key=value pairs, excluding the
// signature parameter itself.
func (g *Gateway) sign(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == signParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}
