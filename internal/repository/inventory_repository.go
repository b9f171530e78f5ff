package repository

import (
	"context"

	"pos/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫カウンタを取得
	Get(ctx context.Context, productID int64) (model.InventoryRecord, error)

	// 行ロック付きで取得（SELECT ... FOR UPDATE）。
	// 同一商品への同時操作はここで直列化される。
	GetForUpdate(ctx context.Context, productID int64) (model.InventoryRecord, error)

	// 商品作成時に1回だけ呼ぶ。minimum_stock以外は0始まり。
	Create(ctx context.Context, rec model.InventoryRecord) error

	// current/reservedへ差分を適用し、available = current - reserved を再計算する
	ApplyDelta(ctx context.Context, productID int64, currentDelta int64, reservedDelta int64) error

	// 棚卸。current_stockを実数で上書きし、棚卸回数と実施時刻を更新する
	ApplyStockTake(ctx context.Context, productID int64, actualCount int64) error

	// 低在庫（available <= minimum）の一覧
	ListBelowMinimum(ctx context.Context, limit int, offset int) ([]model.InventoryRecord, error)
}
