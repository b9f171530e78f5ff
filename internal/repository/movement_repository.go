package repository

import (
	"context"
	"time"

	"pos/internal/domain/model"
)

// 在庫変動履歴の絞り込み条件。
type MovementFilter struct {
	MovementType *model.MovementType
	ActorUserID  *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// 変動履歴の保存・一覧取得の約束。
// Appendはカウンタ更新と同一トランザクション内でのみ呼ばれる。
// 更新・削除は存在しない（監査ログの不変性）。
type MovementRepository interface {
	Append(ctx context.Context, m model.StockMovement) error

	ListByProduct(ctx context.Context, productID int64, filter MovementFilter) ([]model.StockMovement, error)
}
