package usecase

import (
	"context"
	"fmt"

	"pos/internal/domain/model"
	"pos/internal/lock"
	repo "pos/internal/repository"
	"pos/internal/retry"

	"go.uber.org/zap"
)

// 発注入荷で使うロックのリソース種別
const lockResourcePurchaseOrder = "purchase_order"

// 入荷のロック競合・一時障害に対するリトライ上限
const receiveMaxRetries = 3

// 発注の入荷処理。
// 同一発注への同時入荷はアドバイザリロックで排他し、
// ロック競合はRetry Executor経由でリトライする。
type PurchaseOrderUsecase struct {
	tx     repo.TransactionManager
	locks  lock.Manager
	logger *zap.Logger
}

func NewPurchaseOrderUsecase(tx repo.TransactionManager, locks lock.Manager, logger *zap.Logger) *PurchaseOrderUsecase {
	return &PurchaseOrderUsecase{tx: tx, locks: locks, logger: logger}
}

type CreateOrderItemInput struct {
	ProductID  int64
	OrderedQty int64
	UnitCost   int64
}

type CreateOrderInput struct {
	SupplierID int64
	Notes      string
	Items      []CreateOrderItemInput
}

// 発注の新規作成。ステータスはPENDING始まり。
func (u *PurchaseOrderUsecase) CreateOrder(ctx context.Context, actorUserID int64, in CreateOrderInput) (int64, error) {
	if actorUserID <= 0 {
		return 0, fmt.Errorf("%w: actor required", ErrValidation)
	}
	if in.SupplierID <= 0 {
		return 0, fmt.Errorf("%w: invalid supplier id", ErrValidation)
	}
	if len(in.Items) == 0 {
		return 0, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return 0, fmt.Errorf("%w: invalid product id", ErrValidation)
		}
		if it.OrderedQty <= 0 {
			return 0, fmt.Errorf("%w: ordered_qty must be > 0", ErrValidation)
		}
		if it.UnitCost < 0 {
			return 0, fmt.Errorf("%w: unit_cost must be >= 0", ErrValidation)
		}
	}

	var orderID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//発注先の商品がすべて実在するか確認
		for _, it := range in.Items {
			if _, err := r.Products().FindByID(ctx, it.ProductID); err != nil {
				return err
			}
		}

		items := make([]model.PurchaseOrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			items = append(items, model.PurchaseOrderItem{
				ProductID:  it.ProductID,
				OrderedQty: it.OrderedQty,
				UnitCost:   it.UnitCost,
			})
		}

		var err error
		orderID, err = r.PurchaseOrders().Create(ctx, model.PurchaseOrder{
			SupplierID: in.SupplierID,
			Status:     model.PurchaseOrderPending,
			Notes:      in.Notes,
		}, items)
		return err
	})
	if err != nil {
		return 0, err
	}

	u.logger.Info("purchase order created",
		zap.Int64("orderId", orderID),
		zap.Int64("supplierId", in.SupplierID),
		zap.Int("items", len(in.Items)),
		zap.Int64("actorUserId", actorUserID))

	return orderID, nil
}

type ReceiveItemOutput struct {
	Item        model.PurchaseOrderItem   `json:"item"`
	OrderStatus model.PurchaseOrderStatus `json:"order_status"`
}

// 明細の入荷数量を加算し、発注全体のステータスを明細走査で再計算する。
// PENDING → PARTIAL → RECEIVED の一方向で、後退はしない。
func (u *PurchaseOrderUsecase) ReceiveItem(ctx context.Context, actorUserID int64, itemID int64, receivedQty int64) (ReceiveItemOutput, error) {
	if actorUserID <= 0 {
		return ReceiveItemOutput{}, fmt.Errorf("%w: actor required", ErrValidation)
	}
	if itemID <= 0 {
		return ReceiveItemOutput{}, fmt.Errorf("%w: invalid item id", ErrValidation)
	}
	if receivedQty <= 0 {
		return ReceiveItemOutput{}, fmt.Errorf("%w: received_qty must be > 0", ErrValidation)
	}

	//ロック対象は発注単位なので先に明細から発注IDを引く
	var orderID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		it, err := r.PurchaseOrders().FindItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		orderID = it.PurchaseOrderID
		return nil
	})
	if err != nil {
		return ReceiveItemOutput{}, err
	}

	var out ReceiveItemOutput

	err = retry.Do(ctx, receiveMaxRetries, func() error {
		if err := u.locks.Acquire(ctx, lockResourcePurchaseOrder, orderID); err != nil {
			return err
		}
		defer u.locks.Release(ctx, lockResourcePurchaseOrder, orderID)

		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			it, err := r.PurchaseOrders().FindItemByIDForUpdate(ctx, itemID)
			if err != nil {
				return err
			}

			//発注数量を超える入荷は受け付けない
			if it.ReceivedQty+receivedQty > it.OrderedQty {
				return fmt.Errorf("%w: received_qty exceeds outstanding quantity", ErrValidation)
			}

			if err := r.PurchaseOrders().AddReceivedQty(ctx, itemID, receivedQty); err != nil {
				return err
			}

			order, err := r.PurchaseOrders().FindByID(ctx, it.PurchaseOrderID)
			if err != nil {
				return err
			}

			//兄弟明細を走査してステータスを再計算
			items, err := r.PurchaseOrders().ListItemsByOrderID(ctx, it.PurchaseOrderID)
			if err != nil {
				return err
			}

			next := model.NextPurchaseOrderStatus(order.Status, model.RecomputePurchaseOrderStatus(items))
			if next != order.Status {
				if err := r.PurchaseOrders().UpdateStatus(ctx, it.PurchaseOrderID, next); err != nil {
					return err
				}
			}

			it.ReceivedQty += receivedQty
			out = ReceiveItemOutput{Item: it, OrderStatus: next}
			return nil
		})
	})
	if err != nil {
		return ReceiveItemOutput{}, err
	}

	u.logger.Info("purchase order item received",
		zap.Int64("itemId", itemID),
		zap.Int64("orderId", orderID),
		zap.Int64("receivedQty", receivedQty),
		zap.String("orderStatus", string(out.OrderStatus)),
		zap.Int64("actorUserId", actorUserID))

	return out, nil
}
