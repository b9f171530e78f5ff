package repository

import (
	"context"
	"errors"
	"time"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseOrderGormRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderGormRepository(db *gorm.DB) *PurchaseOrderGormRepository {
	return &PurchaseOrderGormRepository{db: db}
}

func (r *PurchaseOrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.PurchaseOrder, error) {
	var o model.PurchaseOrder
	err := r.db.WithContext(ctx).First(&o, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PurchaseOrder{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PurchaseOrder{}, err
	}
	return o, nil
}

func (r *PurchaseOrderGormRepository) FindItemByID(ctx context.Context, itemID int64) (model.PurchaseOrderItem, error) {
	var it model.PurchaseOrderItem
	err := r.db.WithContext(ctx).First(&it, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PurchaseOrderItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PurchaseOrderItem{}, err
	}
	return it, nil
}

// 行ロック付きの明細取得
func (r *PurchaseOrderGormRepository) FindItemByIDForUpdate(ctx context.Context, itemID int64) (model.PurchaseOrderItem, error) {
	var it model.PurchaseOrderItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&it, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PurchaseOrderItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PurchaseOrderItem{}, err
	}
	return it, nil
}

func (r *PurchaseOrderGormRepository) ListItemsByOrderID(ctx context.Context, orderID int64) ([]model.PurchaseOrderItem, error) {
	var items []model.PurchaseOrderItem
	err := r.db.WithContext(ctx).Where("purchase_order_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.PurchaseOrderItem{}, err
	}
	return items, nil
}

func (r *PurchaseOrderGormRepository) Create(ctx context.Context, order model.PurchaseOrder, items []model.PurchaseOrderItem) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return 0, err
	}
	for i := range items {
		items[i].PurchaseOrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
			return 0, err
		}
	}
	return order.ID, nil
}

// 明細の入荷数量を加算
func (r *PurchaseOrderGormRepository) AddReceivedQty(ctx context.Context, itemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.PurchaseOrderItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"received_qty": gorm.Expr("received_qty + ?", qty),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PurchaseOrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.PurchaseOrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.PurchaseOrder{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
