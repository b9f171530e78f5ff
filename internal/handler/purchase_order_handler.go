package handler

import (
	"net/http"
	"strconv"

	"pos/internal/config"
	"pos/internal/middleware"
	"pos/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ReceiveItemRequest struct {
	ReceivedQty int64 `json:"received_qty"`
}

type CreateOrderItemRequest struct {
	ProductID  int64 `json:"product_id"`
	OrderedQty int64 `json:"ordered_qty"`
	UnitCost   int64 `json:"unit_cost"`
}

type CreateOrderRequest struct {
	SupplierID int64                    `json:"supplier_id"`
	Notes      string                   `json:"notes"`
	Items      []CreateOrderItemRequest `json:"items"`
}

type OrderCreatedResponse struct {
	ID int64 `json:"id"`
}

// /admin/purchase-orders 配下の入荷API
type PurchaseOrderHandler struct {
	uc *usecase.PurchaseOrderUsecase
}

// DI
func NewPurchaseOrderHandler(uc *usecase.PurchaseOrderUsecase) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{uc: uc}
}

func (h *PurchaseOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin/purchase-orders")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("", h.createOrder)
	admin.POST("/items/:id/receive", h.receiveItem)
}

func (h *PurchaseOrderHandler) createOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	items := make([]usecase.CreateOrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.CreateOrderItemInput{
			ProductID:  it.ProductID,
			OrderedQty: it.OrderedQty,
			UnitCost:   it.UnitCost,
		})
	}

	id, err := h.uc.CreateOrder(c.Request().Context(), actorID, usecase.CreateOrderInput{
		SupplierID: req.SupplierID,
		Notes:      req.Notes,
		Items:      items,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, OrderCreatedResponse{ID: id})
}

func (h *PurchaseOrderHandler) receiveItem(c echo.Context) error {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || itemID <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req ReceiveItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.ReceiveItem(c.Request().Context(), actorID, itemID, req.ReceivedQty)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
