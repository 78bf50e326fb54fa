// Package httpapi wires gin transport onto the bounded-context services.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	cartapp "github.com/averos/fleamarket/internal/domains/cart/application"
	cartports "github.com/averos/fleamarket/internal/domains/cart/ports"
	catalogapp "github.com/averos/fleamarket/internal/domains/catalog/application"
	catalogports "github.com/averos/fleamarket/internal/domains/catalog/ports"
	ordersapp "github.com/averos/fleamarket/internal/domains/orders/application"
	ordersdomain "github.com/averos/fleamarket/internal/domains/orders/domain"
	ordersports "github.com/averos/fleamarket/internal/domains/orders/ports"
	paymentports "github.com/averos/fleamarket/internal/domains/payments/ports"
	"github.com/averos/fleamarket/internal/shared/problem"
)

// Handlers groups the per-context APIs mounted on the router.
type Handlers struct {
	Orders   OrdersAPI
	Catalog  CatalogAPI
	Cart     CartAPI
	Payments PaymentsAPI
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/products", handlers.Catalog.CreateProduct)
		v1.GET("/products", handlers.Catalog.ListProducts)
		v1.GET("/products/:productId", handlers.Catalog.GetProduct)
		v1.PATCH("/products/:productId/price", handlers.Catalog.RepriceProduct)
		v1.POST("/products/:productId/pull", handlers.Catalog.PullProduct)

		v1.POST("/cart", handlers.Cart.AddItem)
		v1.GET("/cart", handlers.Cart.ListItems)
		v1.DELETE("/cart/:productId", handlers.Cart.RemoveItem)

		v1.POST("/orders", handlers.Orders.CreateOrder)
		v1.GET("/orders", handlers.Orders.ListOrders)
		v1.GET("/orders/:orderId", handlers.Orders.GetOrder)
		v1.POST("/orders/:orderId/cancel", handlers.Orders.CancelOrder)
		v1.POST("/orders/:orderId/ship", handlers.Orders.ShipOrder)
		v1.POST("/orders/:orderId/complete", handlers.Orders.CompleteOrder)
		v1.POST("/orders/:orderId/pay", handlers.Payments.CreateSession)

		v1.POST("/payments/notify", handlers.Payments.Notify)
		v1.GET("/payments/return", handlers.Payments.Return)
	}
	return router
}

// newResponder maps the error taxonomy onto problem details: missing
// resources to 404, insufficient stock and invariant violations to 400,
// forbidden transitions to 409.
func newResponder() *problem.Responder {
	return problem.NewResponder(func(err error) (problem.Detail, bool) {
		switch {
		case errors.Is(err, ordersports.ErrNotFound),
			errors.Is(err, ordersports.ErrProductNotFound),
			errors.Is(err, catalogports.ErrNotFound),
			errors.Is(err, cartports.ErrNotFound):
			return problem.NotFound.WithDetail(err.Error()), true
		case errors.Is(err, ordersports.ErrInsufficientStock):
			return problem.InsufficientStock.WithDetail(err.Error()), true
		case errors.Is(err, ordersdomain.ErrInvalidState):
			return problem.InvalidState.WithDetail(err.Error()), true
		case errors.Is(err, ordersapp.ErrInvalidInput),
			errors.Is(err, catalogapp.ErrInvalidInput),
			errors.Is(err, cartapp.ErrInvalidInput),
			errors.Is(err, paymentports.ErrInvalidAmount):
			return problem.BadRequest.WithDetail(err.Error()), true
		}
		return problem.Detail{}, false
	})
}
