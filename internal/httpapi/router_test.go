package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	cartmemory "github.com/averos/fleamarket/internal/domains/cart/adapters/memory"
	cartapp "github.com/averos/fleamarket/internal/domains/cart/application"
	catalogmemory "github.com/averos/fleamarket/internal/domains/catalog/adapters/memory"
	catalogapp "github.com/averos/fleamarket/internal/domains/catalog/application"
	noopexpiry "github.com/averos/fleamarket/internal/domains/orders/adapters/expiry/noop"
	ordersmemory "github.com/averos/fleamarket/internal/domains/orders/adapters/memory"
	ordersapp "github.com/averos/fleamarket/internal/domains/orders/application"
	paymentsandbox "github.com/averos/fleamarket/internal/domains/payments/adapters/sandbox"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalogRepo := catalogmemory.NewRepository()
	cartRepo := cartmemory.NewRepository()
	ordersRepo := ordersmemory.NewRepository(catalogRepo, cartRepo)
	orderService := ordersapp.NewService(ordersRepo, noopexpiry.NewNotifier(), 30*time.Minute)

	gateway, err := paymentsandbox.NewGateway("test-secret", "", "http://localhost/v1/payments/notify", "http://localhost/v1/payments/return")
	require.NoError(t, err)

	return NewRouter(Handlers{
		Orders:   NewOrdersAPI(orderService),
		Catalog:  NewCatalogAPI(catalogapp.NewService(catalogRepo)),
		Cart:     NewCartAPI(cartapp.NewService(cartRepo)),
		Payments: NewPaymentsAPI(orderService, gateway),
	})
}

func doJSON(t *testing.T, router *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestOrderFlow_CreatePayShipComplete(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/products", "42", gin.H{
		"title": "vintage camera", "price": "120.50", "stock": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decodeBody[productResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/v1/orders", "7", gin.H{
		"product_id": product.ID, "quantity": 2, "address": "12 Canal St",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeBody[orderResponse](t, rec)
	require.Equal(t, "pending", order.Status)
	require.Equal(t, "241.00", order.TotalPrice)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/products/%d", product.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int32(1), decodeBody[productResponse](t, rec).Stock)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/orders/%d/pay", order.ID), "7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeBody[paymentSessionResponse](t, rec)
	require.Equal(t, order.OrderNo, session.OrderNo)
	require.NotEmpty(t, session.PayURL)

	// Replay the signed callback the provider would send.
	payURL, err := url.Parse(session.PayURL)
	require.NoError(t, err)
	form := payURL.Query().Encode()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/notify", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	notifyRec := httptest.NewRecorder()
	router.ServeHTTP(notifyRec, req)
	require.Equal(t, http.StatusOK, notifyRec.Code)
	require.Equal(t, "success", notifyRec.Body.String())

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/orders/%d/ship", order.ID), "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "shipped", decodeBody[orderResponse](t, rec).Status)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/orders/%d/complete", order.ID), "7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "completed", decodeBody[orderResponse](t, rec).Status)
}

func TestCreateOrder_ProblemDetails(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/products", "42", gin.H{
		"title": "lamp", "price": "20.00", "stock": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decodeBody[productResponse](t, rec)

	t.Run("missing user header", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/orders", "", gin.H{
			"product_id": product.ID, "quantity": 1,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
	})

	t.Run("unknown product", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/orders", "7", gin.H{
			"product_id": 9999, "quantity": 1,
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/orders", "7", gin.H{
			"product_id": product.ID, "quantity": 5,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		require.Contains(t, body["type"], "insufficient-stock")
	})
}

func TestCancelOrder_Conflicts(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/products", "42", gin.H{
		"title": "desk", "price": "75.00", "stock": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decodeBody[productResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/v1/orders", "7", gin.H{
		"product_id": product.ID, "quantity": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeBody[orderResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/orders/%d/cancel", order.ID), "7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "cancelled", decodeBody[orderResponse](t, rec).Status)

	// Second cancel hits the state guard.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/orders/%d/cancel", order.ID), "7", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Stock is back, a new order can reserve it.
	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/products/%d", product.ID), "", nil)
	require.Equal(t, int32(2), decodeBody[productResponse](t, rec).Stock)
}

func TestPaymentsNotify_RejectsTamperedSignature(t *testing.T) {
	router := newTestRouter(t)

	form := url.Values{}
	form.Set("out_trade_no", "20240101000000ABCDEFGHIJ")
	form.Set("total_amount", "10.00")
	form.Set("sign", "deadbeef")
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/notify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "failure", rec.Body.String())
}

// A verified callback for an order that was cancelled in the meantime must
// ack failure with the state-conflict status, not a server error.
func TestPaymentsNotify_CancelledOrderAcksConflict(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/products", "42", gin.H{
		"title": "record player", "price": "60.00", "stock": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decodeBody[productResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/v1/orders", "7", gin.H{
		"product_id": product.ID, "quantity": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeBody[orderResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/orders/%d/pay", order.ID), "7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeBody[paymentSessionResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/orders/%d/cancel", order.ID), "7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payURL, err := url.Parse(session.PayURL)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/notify", strings.NewReader(payURL.Query().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	notifyRec := httptest.NewRecorder()
	router.ServeHTTP(notifyRec, req)

	require.Equal(t, http.StatusConflict, notifyRec.Code)
	require.Equal(t, "failure", notifyRec.Body.String())
}

func TestCartFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/products", "42", gin.H{
		"title": "bike", "price": "50.00", "stock": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decodeBody[productResponse](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/v1/cart", "7", gin.H{
		"product_id": product.ID, "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/cart", "7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]cartItemResponse](t, rec), 1)

	// Ordering the product clears the cart entry.
	rec = doJSON(t, router, http.MethodPost, "/v1/orders", "7", gin.H{
		"product_id": product.ID, "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/cart", "7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}
