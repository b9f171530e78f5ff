package handler

import (
	"net/http"
	"strconv"

	"pos/internal/config"
	"pos/internal/middleware"
	"pos/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ProductCreateRequest は商品作成の入力です。
type ProductCreateRequest struct {
	SKU          string `json:"sku"`
	Barcode      string `json:"barcode"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	CostPrice    int64  `json:"cost_price"`
	MinimumStock int64  `json:"minimum_stock"`
	MaximumStock int64  `json:"maximum_stock"`
	IsActive     bool   `json:"is_active"`
}

// UpdateCostRequest は原価更新の入力です。
type UpdateCostRequest struct {
	CostPrice int64 `json:"cost_price"`
}

type ProductCreatedResponse struct {
	ID int64 `json:"id"`
}

// /admin/products をまとめる
type AdminProductHandler struct {
	products *usecase.ProductUsecase
	stock    *usecase.StockUsecase
}

// DI
func NewAdminProductHandler(products *usecase.ProductUsecase, stock *usecase.StockUsecase) *AdminProductHandler {
	return &AdminProductHandler{products: products, stock: stock}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin/products")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("", h.createProduct)
	admin.GET("/:id", h.getProduct)
	admin.PUT("/:id/cost", h.updateCost)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := h.products.CreateProduct(
		c.Request().Context(),
		adminID,
		usecase.CreateProductInput{
			SKU:          req.SKU,
			Barcode:      req.Barcode,
			Name:         req.Name,
			Description:  req.Description,
			Price:        req.Price,
			CostPrice:    req.CostPrice,
			MinimumStock: req.MinimumStock,
			MaximumStock: req.MaximumStock,
			IsActive:     req.IsActive,
		},
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, ProductCreatedResponse{ID: id})
}

func (h *AdminProductHandler) getProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	p, err := h.products.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) updateCost(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req UpdateCostRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.stock.UpdateCost(c.Request().Context(), adminID, id, req.CostPrice); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}
