package handler

import (
	"net/http"
	"strconv"

	"pos/internal/config"
	"pos/internal/middleware"
	repo "pos/internal/repository"
	"pos/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ReceiveStockRequest struct {
	Quantity      int64  `json:"quantity"`
	UnitCost      int64  `json:"unit_cost"`
	SupplierID    *int64 `json:"supplier_id"`
	ReferenceID   *int64 `json:"reference_id"`
	ReferenceType string `json:"reference_type"`
	Notes         string `json:"notes"`
}

type AdjustStockRequest struct {
	Direction string `json:"direction"`
	Quantity  int64  `json:"quantity"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes"`
}

type ReserveStockRequest struct {
	Quantity int64  `json:"quantity"`
	Notes    string `json:"notes"`
}

type ReleaseStockRequest struct {
	Quantity int64 `json:"quantity"`
}

type StockTakeRequest struct {
	ActualCount int64  `json:"actual_count"`
	Notes       string `json:"notes"`
}

type ReturnRestockRequest struct {
	Quantity      int64  `json:"quantity"`
	ReferenceID   *int64 `json:"reference_id"`
	ReferenceType string `json:"reference_type"`
	Notes         string `json:"notes"`
}

// /admin/inventory 配下の在庫操作API
type StockHandler struct {
	stock  *usecase.StockUsecase
	report *usecase.InventoryReportUsecase
}

// DI
func NewStockHandler(stock *usecase.StockUsecase, report *usecase.InventoryReportUsecase) *StockHandler {
	return &StockHandler{stock: stock, report: report}
}

// 在庫操作のルートを登録
func (h *StockHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin/inventory")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("/:product_id/receive", h.receive)
	admin.POST("/:product_id/adjust", h.adjust)
	admin.POST("/:product_id/reserve", h.reserve)
	admin.POST("/:product_id/release", h.release)
	admin.POST("/:product_id/stock-take", h.stockTake)
	admin.POST("/:product_id/return", h.returnRestock)
	admin.GET("/:product_id", h.detail)
	admin.GET("/:product_id/movements", h.movements)
	admin.GET("/low-stock", h.lowStock)
}

func productIDParam(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *StockHandler) receive(c echo.Context) error {
	productID, ok := productIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req ReceiveStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.stock.ReceiveStock(c.Request().Context(), actorID, usecase.ReceiveStockInput{
		ProductID:     productID,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		SupplierID:    req.SupplierID,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Notes:         req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *StockHandler) adjust(c echo.Context) error {
	productID, ok := productIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req AdjustStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.stock.AdjustStock(c.Request().Context(), actorID, usecase.AdjustStockInput{
		ProductID: productID,
		Direction: req.Direction,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Notes:     req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *StockHandler) reserve(c echo.Context) error {
	productID, ok := productIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req ReserveStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.stock.ReserveStock(c.Request().Context(), actorID, productID, req.Quantity, req.Notes)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *StockHandler) release(c echo.Context) error {
	productID, ok := productIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req ReleaseStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.stock.ReleaseStock(c.Request().Context(), actorID, productID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *StockHandler) stockTake(c echo.Context) error {
	productID, ok := productIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req StockTakeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.stock.StockTake(c.Request().Context(), actorID, usecase.StockTakeInput{
		ProductID:   productID,
		ActualCount: req.ActualCount,
		Notes:       req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *StockHandler) returnRestock(c echo.Context) error {
	productID, ok := productIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req ReturnRestockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.stock.ReturnRestock(c.Request().Context(), actorID, usecase.ReturnRestockInput{
		ProductID:     productID,
		Quantity:      req.Quantity,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Notes:         req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *StockHandler) detail(c echo.Context) error {
	productID, ok := productIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	rec, err := h.report.GetInventory(c.Request().Context(), productID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, rec)
}

func (h *StockHandler) movements(c echo.Context) error {
	productID, ok := productIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	filter := repo.MovementFilter{}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		filter.Limit = l
	}
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		}
		filter.Offset = o
	}

	movements, err := h.report.ListMovements(c.Request().Context(), productID, filter)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, movements)
}

func (h *StockHandler) lowStock(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		}
		offset = o
	}

	recs, err := h.report.ListLowStock(c.Request().Context(), limit, offset)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, recs)
}
