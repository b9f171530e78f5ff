package usecase

import (
	"context"
	"fmt"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
)

// 在庫の読み取り系（低在庫アラート・変動履歴）。
// どちらも読むだけで、カウンタにも履歴にも書かない。
type InventoryReportUsecase struct {
	tx repo.TransactionManager
}

func NewInventoryReportUsecase(tx repo.TransactionManager) *InventoryReportUsecase {
	return &InventoryReportUsecase{tx: tx}
}

func (u *InventoryReportUsecase) GetInventory(ctx context.Context, productID int64) (model.InventoryRecord, error) {
	if productID <= 0 {
		return model.InventoryRecord{}, fmt.Errorf("%w: invalid product id", ErrValidation)
	}

	var rec model.InventoryRecord
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		rec, err = r.Inventory().Get(ctx, productID)
		return err
	})
	if err != nil {
		return model.InventoryRecord{}, err
	}
	return rec, nil
}

// 低在庫（available <= minimum）の一覧
func (u *InventoryReportUsecase) ListLowStock(ctx context.Context, limit int, offset int) ([]model.InventoryRecord, error) {
	var recs []model.InventoryRecord
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		recs, err = r.Inventory().ListBelowMinimum(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// 商品の変動履歴（新しい順）
func (u *InventoryReportUsecase) ListMovements(ctx context.Context, productID int64, filter repo.MovementFilter) ([]model.StockMovement, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: invalid product id", ErrValidation)
	}

	var movements []model.StockMovement
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		movements, err = r.Movements().ListByProduct(ctx, productID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}
