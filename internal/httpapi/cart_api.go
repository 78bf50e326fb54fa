package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	cartdomain "github.com/averos/fleamarket/internal/domains/cart/domain"
	cartports "github.com/averos/fleamarket/internal/domains/cart/ports"
	"github.com/averos/fleamarket/internal/shared/problem"
)

// CartAPI wires HTTP transport with the cart service.
type CartAPI struct {
	service   cartports.Service
	responder *problem.Responder
}

// NewCartAPI creates a CartAPI backed by the provided service.
func NewCartAPI(service cartports.Service) CartAPI {
	return CartAPI{service: service, responder: newResponder()}
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int32 `json:"quantity" binding:"required"`
}

type cartItemResponse struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCartItemResponse(item *cartdomain.Item) cartItemResponse {
	return cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

// Post /v1/cart
// Adding the same product again replaces the quantity.
func (api *CartAPI) AddItem(c *gin.Context) {
	userID, ok := userIDFrom(c, api.responder)
	if !ok {
		return
	}
	var payload addCartItemRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	item, err := api.service.Add(c.Request.Context(), userID, payload.ProductID, payload.Quantity)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartItemResponse(item))
}

// Get /v1/cart
func (api *CartAPI) ListItems(c *gin.Context) {
	userID, ok := userIDFrom(c, api.responder)
	if !ok {
		return
	}
	items, err := api.service.List(c.Request.Context(), userID)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(items, func(item *cartdomain.Item, _ int) cartItemResponse {
		return toCartItemResponse(item)
	}))
}

// Delete /v1/cart/:productId
func (api *CartAPI) RemoveItem(c *gin.Context) {
	userID, ok := userIDFrom(c, api.responder)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "productId", api.responder)
	if !ok {
		return
	}
	if err := api.service.Remove(c.Request.Context(), userID, productID); err != nil {
		api.responder.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
