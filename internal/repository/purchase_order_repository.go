package repository

import (
	"context"

	"pos/internal/domain/model"
)

type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.PurchaseOrder, error)
	FindItemByID(ctx context.Context, itemID int64) (model.PurchaseOrderItem, error)

	// 行ロック付きの明細取得
	FindItemByIDForUpdate(ctx context.Context, itemID int64) (model.PurchaseOrderItem, error)

	ListItemsByOrderID(ctx context.Context, orderID int64) ([]model.PurchaseOrderItem, error)

	Create(ctx context.Context, order model.PurchaseOrder, items []model.PurchaseOrderItem) (int64, error)

	// 明細の入荷数量を加算
	AddReceivedQty(ctx context.Context, itemID int64, qty int64) error

	UpdateStatus(ctx context.Context, orderID int64, status model.PurchaseOrderStatus) error
}
