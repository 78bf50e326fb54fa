package sandbox

import (
	"context"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averos/fleamarket/internal/domains/payments/ports"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := NewGateway("test-secret", "", "https://shop.example.com/v1/payments/notify", "https://shop.example.com/v1/payments/return")
	require.NoError(t, err)
	return gw
}

func TestNewGateway_RequiresConfiguration(t *testing.T) {
	_, err := NewGateway("", "", "notify", "return")
	require.ErrorIs(t, err, ports.ErrNotConfigured)

	_, err = NewGateway("secret", "", "", "return")
	require.ErrorIs(t, err, ports.ErrNotConfigured)

	_, err = NewGateway("secret", "", "notify", "")
	require.ErrorIs(t, err, ports.ErrNotConfigured)
}

func TestCreateSession_RejectsNonPositiveAmount(t *testing.T) {
	gw := newTestGateway(t)

	_, err := gw.CreateSession(context.Background(), "20240101ABCDEF", decimal.Zero, "old bike")
	require.ErrorIs(t, err, ports.ErrInvalidAmount)

	_, err = gw.CreateSession(context.Background(), "20240101ABCDEF", decimal.NewFromInt(-5), "old bike")
	require.ErrorIs(t, err, ports.ErrInvalidAmount)
}

func TestCreateSession_ProducesVerifiableSignature(t *testing.T) {
	gw := newTestGateway(t)

	session, err := gw.CreateSession(context.Background(), "20240101ABCDEF", decimal.RequireFromString("59.97"), "old bike")
	require.NoError(t, err)

	payURL, err := url.Parse(session.PayURL)
	require.NoError(t, err)
	params := payURL.Query()

	assert.Equal(t, "20240101ABCDEF", params.Get("out_trade_no"))
	assert.Equal(t, "59.97", params.Get("total_amount"))
	assert.True(t, gw.VerifyCallback(params))
}

func TestVerifyCallback_RejectsTampering(t *testing.T) {
	gw := newTestGateway(t)

	session, err := gw.CreateSession(context.Background(), "20240101ABCDEF", decimal.NewFromInt(100), "old bike")
	require.NoError(t, err)

	payURL, err := url.Parse(session.PayURL)
	require.NoError(t, err)

	tampered := payURL.Query()
	tampered.Set("total_amount", "0.01")
	assert.False(t, gw.VerifyCallback(tampered))

	unsigned := url.Values{}
	unsigned.Set("out_trade_no", "20240101ABCDEF")
	assert.False(t, gw.VerifyCallback(unsigned))
}

func TestVerifyCallback_RejectsForeignSecret(t *testing.T) {
	gw := newTestGateway(t)
	other, err := NewGateway("other-secret", "", "https://shop.example.com/v1/payments/notify", "https://shop.example.com/v1/payments/return")
	require.NoError(t, err)

	session, err := other.CreateSession(context.Background(), "20240101ABCDEF", decimal.NewFromInt(100), "old bike")
	require.NoError(t, err)

	payURL, err := url.Parse(session.PayURL)
	require.NoError(t, err)
	assert.False(t, gw.VerifyCallback(payURL.Query()))
}
