package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"go.uber.org/zap"
)

// 在庫操作エンジン。
// どの操作も「読み→検証→カウンタ更新→変動履歴追記」を1トランザクションで行い、
// 途中で失敗したらその操作の書き込みはすべてロールバックされる。
type StockUsecase struct {
	tx     repo.TransactionManager
	logger *zap.Logger
}

func NewStockUsecase(tx repo.TransactionManager, logger *zap.Logger) *StockUsecase {
	return &StockUsecase{tx: tx, logger: logger}
}

// 操作結果。確定後のカウンタと、履歴に残したスナップショットを返す。
type StockOperationOutput struct {
	ProductID      int64              `json:"product_id"`
	MovementType   model.MovementType `json:"movement_type"`
	QuantityChange int64              `json:"quantity_change"`
	PreviousStock  int64              `json:"previous_stock"`
	NewStock       int64              `json:"new_stock"`
	CurrentStock   int64              `json:"current_stock"`
	ReservedStock  int64              `json:"reserved_stock"`
	AvailableStock int64              `json:"available_stock"`

	//棚卸のみ：実数と帳簿の差
	Difference int64 `json:"difference,omitempty"`
}

type ReceiveStockInput struct {
	ProductID     int64
	Quantity      int64
	UnitCost      int64
	SupplierID    *int64
	ReferenceID   *int64
	ReferenceType string
	Notes         string
}

// 入荷。current/availableを増やす（reservedは触らない）。
// unit_cost > 0 のときは原価更新を同一トランザクション内で先に行う
// （暗黙の副作用ではなく、UpdateCost + 入荷の明示的な合成）。
func (u *StockUsecase) ReceiveStock(ctx context.Context, actorUserID int64, in ReceiveStockInput) (StockOperationOutput, error) {
	if actorUserID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: actor required", ErrValidation)
	}
	if in.ProductID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	if in.Quantity <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if in.UnitCost < 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: unit_cost must be >= 0", ErrValidation)
	}

	var out StockOperationOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//原価更新（入荷の副作用ではなく明示の操作として先に実行）
		if in.UnitCost > 0 {
			if err := r.Products().UpdateCostPrice(ctx, in.ProductID, in.UnitCost); err != nil {
				return err
			}
		}

		rec, err := r.Inventory().GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}

		prev := rec.CurrentStock
		if err := r.Inventory().ApplyDelta(ctx, in.ProductID, in.Quantity, 0); err != nil {
			return err
		}

		refID, refType := in.ReferenceID, in.ReferenceType
		if refID == nil && in.SupplierID != nil {
			refID, refType = in.SupplierID, "supplier"
		}

		m := model.StockMovement{
			ProductID:      in.ProductID,
			MovementType:   model.MovementReceipt,
			QuantityChange: in.Quantity,
			PreviousStock:  prev,
			NewStock:       prev + in.Quantity,
			ReferenceID:    refID,
			ReferenceType:  refType,
			Notes:          in.Notes,
			ActorUserID:    actorUserID,
			CreatedAt:      time.Now(),
		}
		if err := r.Movements().Append(ctx, m); err != nil {
			return err
		}

		out = StockOperationOutput{
			ProductID:      in.ProductID,
			MovementType:   model.MovementReceipt,
			QuantityChange: in.Quantity,
			PreviousStock:  prev,
			NewStock:       prev + in.Quantity,
			CurrentStock:   rec.CurrentStock + in.Quantity,
			ReservedStock:  rec.ReservedStock,
			AvailableStock: rec.AvailableStock + in.Quantity,
		}
		return nil
	})
	if err != nil {
		return StockOperationOutput{}, err
	}

	u.logger.Info("stock received",
		zap.Int64("productId", in.ProductID),
		zap.Int64("quantity", in.Quantity),
		zap.Int64("actorUserId", actorUserID))

	return out, nil
}

type AdjustStockInput struct {
	ProductID int64
	Direction string // add / subtract
	Quantity  int64
	Reason    string
	Notes     string
}

// 手動調整。currentを±quantityする。
// 結果が負になる、または確保済み数量を下回る減算は拒否する。
func (u *StockUsecase) AdjustStock(ctx context.Context, actorUserID int64, in AdjustStockInput) (StockOperationOutput, error) {
	if actorUserID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: actor required", ErrValidation)
	}
	if in.ProductID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	if in.Quantity <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return StockOperationOutput{}, fmt.Errorf("%w: reason required", ErrValidation)
	}

	var delta int64
	switch in.Direction {
	case "add":
		delta = in.Quantity
	case "subtract":
		delta = -in.Quantity
	default:
		return StockOperationOutput{}, fmt.Errorf("%w: direction must be add or subtract", ErrValidation)
	}

	var out StockOperationOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rec, err := r.Inventory().GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}

		next := rec.CurrentStock + delta
		if next < 0 {
			return fmt.Errorf("%w: stock would become negative", ErrInvalidAdjustment)
		}
		//確保済みを下回る減算は許さない
		if next < rec.ReservedStock {
			return fmt.Errorf("%w: stock would fall below reserved", ErrInvalidAdjustment)
		}

		if err := r.Inventory().ApplyDelta(ctx, in.ProductID, delta, 0); err != nil {
			return err
		}

		m := model.StockMovement{
			ProductID:      in.ProductID,
			MovementType:   model.MovementAdjustment,
			QuantityChange: delta,
			PreviousStock:  rec.CurrentStock,
			NewStock:       next,
			Notes:          joinNotes(in.Reason, in.Notes),
			ActorUserID:    actorUserID,
			CreatedAt:      time.Now(),
		}
		if err := r.Movements().Append(ctx, m); err != nil {
			return err
		}

		out = StockOperationOutput{
			ProductID:      in.ProductID,
			MovementType:   model.MovementAdjustment,
			QuantityChange: delta,
			PreviousStock:  rec.CurrentStock,
			NewStock:       next,
			CurrentStock:   next,
			ReservedStock:  rec.ReservedStock,
			AvailableStock: rec.AvailableStock + delta,
		}
		return nil
	})
	if err != nil {
		return StockOperationOutput{}, err
	}

	u.logger.Info("stock adjusted",
		zap.Int64("productId", in.ProductID),
		zap.Int64("delta", delta),
		zap.String("reason", in.Reason),
		zap.Int64("actorUserId", actorUserID))

	return out, nil
}

// 確保。available >= quantity のときだけreservedを増やす。
// 足りなければInsufficientStockErrorで、いくつまでなら取れたかを返す。
func (u *StockUsecase) ReserveStock(ctx context.Context, actorUserID int64, productID int64, quantity int64, notes string) (StockOperationOutput, error) {
	if actorUserID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: actor required", ErrValidation)
	}
	if productID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	if quantity <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	var out StockOperationOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rec, err := r.Inventory().GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		if rec.AvailableStock < quantity {
			return &InsufficientStockError{Available: rec.AvailableStock, Requested: quantity}
		}

		if err := r.Inventory().ApplyDelta(ctx, productID, 0, quantity); err != nil {
			return err
		}

		//currentは動かないので前後同値。変動量はavailableの減少分
		m := model.StockMovement{
			ProductID:      productID,
			MovementType:   model.MovementReservation,
			QuantityChange: -quantity,
			PreviousStock:  rec.CurrentStock,
			NewStock:       rec.CurrentStock,
			Notes:          notes,
			ActorUserID:    actorUserID,
			CreatedAt:      time.Now(),
		}
		if err := r.Movements().Append(ctx, m); err != nil {
			return err
		}

		out = StockOperationOutput{
			ProductID:      productID,
			MovementType:   model.MovementReservation,
			QuantityChange: -quantity,
			PreviousStock:  rec.CurrentStock,
			NewStock:       rec.CurrentStock,
			CurrentStock:   rec.CurrentStock,
			ReservedStock:  rec.ReservedStock + quantity,
			AvailableStock: rec.AvailableStock - quantity,
		}
		return nil
	})
	if err != nil {
		var ins *InsufficientStockError
		if errors.As(err, &ins) {
			u.logger.Warn("reservation rejected",
				zap.Int64("productId", productID),
				zap.Int64("available", ins.Available),
				zap.Int64("requested", ins.Requested))
		}
		return StockOperationOutput{}, err
	}

	return out, nil
}

// 確保解除。reservedを減らしavailableへ戻す。
// 確保済みを超える解除はreservedが負になるので拒否する。
func (u *StockUsecase) ReleaseStock(ctx context.Context, actorUserID int64, productID int64, quantity int64) (StockOperationOutput, error) {
	if actorUserID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: actor required", ErrValidation)
	}
	if productID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	if quantity <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	var out StockOperationOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rec, err := r.Inventory().GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		if rec.ReservedStock < quantity {
			return fmt.Errorf("%w: release exceeds reserved stock", ErrInvalidAdjustment)
		}

		if err := r.Inventory().ApplyDelta(ctx, productID, 0, -quantity); err != nil {
			return err
		}

		m := model.StockMovement{
			ProductID:      productID,
			MovementType:   model.MovementReservation,
			QuantityChange: quantity,
			PreviousStock:  rec.CurrentStock,
			NewStock:       rec.CurrentStock,
			ActorUserID:    actorUserID,
			CreatedAt:      time.Now(),
		}
		if err := r.Movements().Append(ctx, m); err != nil {
			return err
		}

		out = StockOperationOutput{
			ProductID:      productID,
			MovementType:   model.MovementReservation,
			QuantityChange: quantity,
			PreviousStock:  rec.CurrentStock,
			NewStock:       rec.CurrentStock,
			CurrentStock:   rec.CurrentStock,
			ReservedStock:  rec.ReservedStock - quantity,
			AvailableStock: rec.AvailableStock + quantity,
		}
		return nil
	})
	if err != nil {
		return StockOperationOutput{}, err
	}

	return out, nil
}

type StockTakeInput struct {
	ProductID   int64
	ActualCount int64
	Notes       string
}

// 棚卸。currentを実数で上書きし、差分をavailableへ反映する。
func (u *StockUsecase) StockTake(ctx context.Context, actorUserID int64, in StockTakeInput) (StockOperationOutput, error) {
	if actorUserID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: actor required", ErrValidation)
	}
	if in.ProductID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	if in.ActualCount < 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: actual_count must be >= 0", ErrValidation)
	}

	var out StockOperationOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rec, err := r.Inventory().GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}

		diff := in.ActualCount - rec.CurrentStock

		if err := r.Inventory().ApplyStockTake(ctx, in.ProductID, in.ActualCount); err != nil {
			return err
		}

		m := model.StockMovement{
			ProductID:      in.ProductID,
			MovementType:   model.MovementStockTake,
			QuantityChange: diff,
			PreviousStock:  rec.CurrentStock,
			NewStock:       in.ActualCount,
			Notes:          in.Notes,
			ActorUserID:    actorUserID,
			CreatedAt:      time.Now(),
		}
		if err := r.Movements().Append(ctx, m); err != nil {
			return err
		}

		out = StockOperationOutput{
			ProductID:      in.ProductID,
			MovementType:   model.MovementStockTake,
			QuantityChange: diff,
			PreviousStock:  rec.CurrentStock,
			NewStock:       in.ActualCount,
			CurrentStock:   in.ActualCount,
			ReservedStock:  rec.ReservedStock,
			AvailableStock: rec.AvailableStock + diff,
			Difference:     diff,
		}
		return nil
	})
	if err != nil {
		return StockOperationOutput{}, err
	}

	u.logger.Info("stock take recorded",
		zap.Int64("productId", in.ProductID),
		zap.Int64("actualCount", in.ActualCount),
		zap.Int64("difference", out.Difference),
		zap.Int64("actorUserId", actorUserID))

	return out, nil
}

type ReturnRestockInput struct {
	ProductID     int64
	Quantity      int64
	ReferenceID   *int64
	ReferenceType string
	Notes         string
}

// 返品による在庫戻し。currentを増やす。
// 在庫レコードがまだ無い商品は、返品数量を初期値としてその場で作る。
func (u *StockUsecase) ReturnRestock(ctx context.Context, actorUserID int64, in ReturnRestockInput) (StockOperationOutput, error) {
	var out StockOperationOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		out, err = u.ReturnRestockTx(ctx, r, actorUserID, in)
		return err
	})
	if err != nil {
		return StockOperationOutput{}, err
	}
	return out, nil
}

// 返品ワークフロー側のトランザクションに同居させるための入口。
func (u *StockUsecase) ReturnRestockTx(ctx context.Context, r repo.TxRepos, actorUserID int64, in ReturnRestockInput) (StockOperationOutput, error) {
	if actorUserID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: actor required", ErrValidation)
	}
	if in.ProductID <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	if in.Quantity <= 0 {
		return StockOperationOutput{}, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	rec, err := r.Inventory().GetForUpdate(ctx, in.ProductID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return StockOperationOutput{}, err
	}

	var prev int64
	if errors.Is(err, repo.ErrNotFound) {
		//自己修復：返品数量を初期値としてレコードを作る
		prev = 0
		rec = model.InventoryRecord{ProductID: in.ProductID}
		if err := r.Inventory().Create(ctx, model.InventoryRecord{
			ProductID:      in.ProductID,
			CurrentStock:   in.Quantity,
			AvailableStock: in.Quantity,
		}); err != nil {
			return StockOperationOutput{}, err
		}
	} else {
		prev = rec.CurrentStock
		if err := r.Inventory().ApplyDelta(ctx, in.ProductID, in.Quantity, 0); err != nil {
			return StockOperationOutput{}, err
		}
	}

	m := model.StockMovement{
		ProductID:      in.ProductID,
		MovementType:   model.MovementReturn,
		QuantityChange: in.Quantity,
		PreviousStock:  prev,
		NewStock:       prev + in.Quantity,
		ReferenceID:    in.ReferenceID,
		ReferenceType:  in.ReferenceType,
		Notes:          in.Notes,
		ActorUserID:    actorUserID,
		CreatedAt:      time.Now(),
	}
	if err := r.Movements().Append(ctx, m); err != nil {
		return StockOperationOutput{}, err
	}

	return StockOperationOutput{
		ProductID:      in.ProductID,
		MovementType:   model.MovementReturn,
		QuantityChange: in.Quantity,
		PreviousStock:  prev,
		NewStock:       prev + in.Quantity,
		CurrentStock:   rec.CurrentStock + in.Quantity,
		ReservedStock:  rec.ReservedStock,
		AvailableStock: rec.AvailableStock + in.Quantity,
	}, nil
}

// 原価の更新。入荷と独立に呼べる明示的な操作。
func (u *StockUsecase) UpdateCost(ctx context.Context, actorUserID int64, productID int64, costPrice int64) error {
	if actorUserID <= 0 {
		return fmt.Errorf("%w: actor required", ErrValidation)
	}
	if productID <= 0 {
		return fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	if costPrice < 0 {
		return fmt.Errorf("%w: cost_price must be >= 0", ErrValidation)
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.Products().UpdateCostPrice(ctx, productID, costPrice)
	})
}

func joinNotes(reason string, notes string) string {
	reason = strings.TrimSpace(reason)
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return reason
	}
	return reason + ": " + notes
}
