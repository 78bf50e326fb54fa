package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	ordersdomain "github.com/averos/fleamarket/internal/domains/orders/domain"
	ordersports "github.com/averos/fleamarket/internal/domains/orders/ports"
	paymentports "github.com/averos/fleamarket/internal/domains/payments/ports"
	"github.com/averos/fleamarket/internal/shared/problem"
)

// PaymentsAPI bridges the payment provider and the order lifecycle. The
// asynchronous notify callback is the authoritative payment signal; the
// synchronous return is only a browser redirect.
type PaymentsAPI struct {
	orders    ordersports.Service
	gateway   paymentports.Gateway
	responder *problem.Responder
}

// NewPaymentsAPI creates a PaymentsAPI over the order service and gateway.
func NewPaymentsAPI(orders ordersports.Service, gateway paymentports.Gateway) PaymentsAPI {
	return PaymentsAPI{orders: orders, gateway: gateway, responder: newResponder()}
}

type paymentSessionResponse struct {
	OrderNo string `json:"order_no"`
	Amount  string `json:"amount"`
	PayURL  string `json:"pay_url"`
}

// Post /v1/orders/:orderId/pay
// Opens a payment session for a pending order.
func (api *PaymentsAPI) CreateSession(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId", api.responder)
	if !ok {
		return
	}
	order, err := api.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	if order.Status != ordersdomain.StatusPending {
		api.responder.Respond(c, problem.InvalidState.WithDetail(
			fmt.Sprintf("order %s is %s, only pending orders can be paid", order.OrderNo, order.Status)))
		return
	}
	subject := fmt.Sprintf("fleamarket order %s", order.OrderNo)
	session, err := api.gateway.CreateSession(c.Request.Context(), order.OrderNo, order.TotalPrice, subject)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentSessionResponse{
		OrderNo: session.OrderNo,
		Amount:  session.Amount.StringFixed(2),
		PayURL:  session.PayURL,
	})
}

// Post /v1/payments/notify
// Provider webhook. Responds with the provider's plain-text ack protocol
// rather than problem details.
func (api *PaymentsAPI) Notify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, paymentports.AckFailure)
		return
	}
	values := c.Request.Form
	if !api.gateway.VerifyCallback(values) {
		c.String(http.StatusBadRequest, paymentports.AckFailure)
		return
	}
	orderNo := values.Get("out_trade_no")
	order, err := api.orders.GetByOrderNo(c.Request.Context(), orderNo)
	if err != nil {
		c.String(api.responder.Status(err), paymentports.AckFailure)
		return
	}
	if _, err := api.orders.ConfirmPayment(c.Request.Context(), order.ID); err != nil {
		c.String(api.responder.Status(err), paymentports.AckFailure)
		return
	}
	c.String(http.StatusOK, paymentports.AckSuccess)
}

// Get /v1/payments/return
// Browser redirect after checkout. Confirmation is best-effort here since
// the webhook usually lands first.
func (api *PaymentsAPI) Return(c *gin.Context) {
	values := c.Request.URL.Query()
	if !api.gateway.VerifyCallback(values) {
		api.responder.BadRequest(c, "invalid payment callback signature")
		return
	}
	order, err := api.orders.GetByOrderNo(c.Request.Context(), values.Get("out_trade_no"))
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	if _, err := api.orders.ConfirmPayment(c.Request.Context(), order.ID); err != nil {
		api.responder.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/v1/orders/%d", order.ID))
}
