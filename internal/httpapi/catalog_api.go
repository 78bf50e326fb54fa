package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	catalogdomain "github.com/averos/fleamarket/internal/domains/catalog/domain"
	catalogports "github.com/averos/fleamarket/internal/domains/catalog/ports"
	"github.com/averos/fleamarket/internal/shared/problem"
)

// CatalogAPI wires HTTP transport with the catalog service.
type CatalogAPI struct {
	service   catalogports.Service
	responder *problem.Responder
}

// NewCatalogAPI creates a CatalogAPI backed by the provided service.
func NewCatalogAPI(service catalogports.Service) CatalogAPI {
	return CatalogAPI{service: service, responder: newResponder()}
}

type createProductRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Price       string   `json:"price" binding:"required"`
	Stock       int32    `json:"stock"`
	Photos      []string `json:"photos"`
}

type repriceRequest struct {
	Price string `json:"price" binding:"required"`
}

type productResponse struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"seller_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price"`
	Stock       int32     `json:"stock"`
	Photos      []string  `json:"photos,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductResponse(product *catalogdomain.Product) productResponse {
	return productResponse{
		ID:          product.ID,
		SellerID:    product.SellerID,
		Title:       product.Title,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
		Stock:       product.Stock,
		Photos:      product.Photos,
		Status:      string(product.Status),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

// Post /v1/products
func (api *CatalogAPI) CreateProduct(c *gin.Context) {
	sellerID, ok := userIDFrom(c, api.responder)
	if !ok {
		return
	}
	var payload createProductRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		api.responder.BadRequest(c, "price must be a decimal number")
		return
	}
	product, err := api.service.Create(c.Request.Context(), catalogports.CreateProductInput{
		SellerID:    sellerID,
		Title:       payload.Title,
		Description: payload.Description,
		Price:       price,
		Stock:       payload.Stock,
		Photos:      payload.Photos,
	})
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(product))
}

// Get /v1/products/:productId
func (api *CatalogAPI) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "productId", api.responder)
	if !ok {
		return
	}
	product, err := api.service.GetByID(c.Request.Context(), id)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

// Get /v1/products?status=released,pulled
func (api *CatalogAPI) ListProducts(c *gin.Context) {
	var statuses []string
	if raw := c.Query("status"); raw != "" {
		statuses = splitCSV(raw)
	}
	products, err := api.service.List(c.Request.Context(), statuses)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(products, func(product *catalogdomain.Product, _ int) productResponse {
		return toProductResponse(product)
	}))
}

// Patch /v1/products/:productId/price
func (api *CatalogAPI) RepriceProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "productId", api.responder)
	if !ok {
		return
	}
	var payload repriceRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		api.responder.BadRequest(c, "price must be a decimal number")
		return
	}
	product, err := api.service.Reprice(c.Request.Context(), id, price)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

// Post /v1/products/:productId/pull
func (api *CatalogAPI) PullProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "productId", api.responder)
	if !ok {
		return
	}
	product, err := api.service.Pull(c.Request.Context(), id)
	if err != nil {
		api.responder.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}
