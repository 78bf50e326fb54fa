package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	ordersdomain "github.com/averos/fleamarket/internal/domains/orders/domain"
	ordersports "github.com/averos/fleamarket/internal/domains/orders/ports"
	"github.com/averos/fleamarket/internal/shared/problem"
)

// OrdersAPI wires HTTP transport with the order lifecycle service.
type OrdersAPI struct {
	service   ordersports.Service
	responder *problem.Responder
}

// NewOrdersAPI creates an OrdersAPI backed by the provided service.
func NewOrdersAPI(service ordersports.Service) OrdersAPI {
	return OrdersAPI{service: service, responder: newResponder()}
}

type createOrderRequest struct {
	ProductID     int64  `json:"product_id" binding:"required"`
	Quantity      int32  `json:"quantity" binding:"required"`
	Address       string `json:"address"`
	PaymentMethod string `json:"payment_method"`
}

type orderResponse struct {
	ID            int64      `json:"id"`
	OrderNo       string     `json:"order_no"`
	UserID        int64      `json:"user_id"`
	ProductID     int64      `json:"product_id"`
	Quantity      int32      `json:"quantity"`
	UnitPrice     string     `json:"unit_price"`
	TotalPrice    string     `json:"total_price"`
	Status        string     `json:"status"`
	Address       string     `json:"address,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ShippedAt     *time.Time `json:"shipped_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

func toOrderResponse(order *ordersdomain.Order) orderResponse {
	return orderResponse{
		ID:            order.ID,
		OrderNo:       order.OrderNo,
		UserID:        order.UserID,
		ProductID:     order.ProductID,
		Quantity:      order.Quantity,
		UnitPrice:     order.UnitPrice.StringFixed(2),
		TotalPrice:    order.TotalPrice.StringFixed(2),
		Status:        string(order.Status),
		Address:       order.Address,
		PaymentMethod: order.PaymentMethod,
		CreatedAt:     order.CreatedAt,
		PaidAt:        order.PaidAt,
		ShippedAt:     order.ShippedAt,
		CompletedAt:   order.CompletedAt,
		CancelledAt:   order.CancelledAt,
	}
}

// Post /v1/orders
// Reserve stock and open an order
func (api *OrdersAPI) CreateOrder(c *gin.Context) {
	userID, ok := userIDFrom(c, api.responder)
	if !ok {
		return
	}
	var payload createOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	order, err := api.service.Create(c.Request.Context(), ordersports.CreateOrderInput{
		UserID:        userID,
		ProductID:     payload.ProductID,
		Quantity:      payload.Quantity,
		Address:       payload.Address,
		PaymentMethod: payload.PaymentMethod,
	})
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// Get /v1/orders/:orderId
func (api *OrdersAPI) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId", api.responder)
	if !ok {
		return
	}
	order, err := api.service.GetByID(c.Request.Context(), id)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Get /v1/orders
// List the calling user's orders
func (api *OrdersAPI) ListOrders(c *gin.Context) {
	userID, ok := userIDFrom(c, api.responder)
	if !ok {
		return
	}
	orders, err := api.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(orders, func(order *ordersdomain.Order, _ int) orderResponse {
		return toOrderResponse(order)
	}))
}

// Post /v1/orders/:orderId/cancel
func (api *OrdersAPI) CancelOrder(c *gin.Context) {
	api.transition(c, api.service.Cancel)
}

// Post /v1/orders/:orderId/ship
func (api *OrdersAPI) ShipOrder(c *gin.Context) {
	api.transition(c, api.service.Ship)
}

// Post /v1/orders/:orderId/complete
func (api *OrdersAPI) CompleteOrder(c *gin.Context) {
	api.transition(c, api.service.Complete)
}

func (api *OrdersAPI) transition(c *gin.Context, op func(ctx context.Context, id int64) (*ordersdomain.Order, error)) {
	id, ok := parseIDParam(c, "orderId", api.responder)
	if !ok {
		return
	}
	order, err := op(c.Request.Context(), id)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}
