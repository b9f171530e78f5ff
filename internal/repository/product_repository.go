package repository

import (
	"context"
	"errors"

	"pos/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 商品の永続化（保存・取得）だけを約束。
// カタログ本体は別システムの持ち物で、在庫側が触るのは参照と原価だけ。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)

	// 原価の更新（入荷時の明示的な複合操作の片割れ）
	UpdateCostPrice(ctx context.Context, productID int64, costPrice int64) error
}
