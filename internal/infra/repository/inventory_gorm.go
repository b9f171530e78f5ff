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

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

func (r *InventoryGormRepository) Get(ctx context.Context, productID int64) (model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.InventoryRecord{}, repo.ErrNotFound
	}
	if err != nil {
		return model.InventoryRecord{}, err
	}
	return rec, nil
}

// 行ロック付き取得。同一商品の操作はこのロックで直列化する
func (r *InventoryGormRepository) GetForUpdate(ctx context.Context, productID int64) (model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.InventoryRecord{}, repo.ErrNotFound
	}
	if err != nil {
		return model.InventoryRecord{}, err
	}
	return rec, nil
}

func (r *InventoryGormRepository) Create(ctx context.Context, rec model.InventoryRecord) error {
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	return nil
}

// カウンタへ差分を適用。availableはcurrent - reservedになるよう同時に再計算する
func (r *InventoryGormRepository) ApplyDelta(ctx context.Context, productID int64, currentDelta int64, reservedDelta int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"current_stock":   gorm.Expr("current_stock + ?", currentDelta),
			"reserved_stock":  gorm.Expr("reserved_stock + ?", reservedDelta),
			"available_stock": gorm.Expr("available_stock + ?", currentDelta-reservedDelta),
			"last_updated":    time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 棚卸。currentを実数で上書きし、availableを再計算する
func (r *InventoryGormRepository) ApplyStockTake(ctx context.Context, productID int64, actualCount int64) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"current_stock":    actualCount,
			"available_stock":  gorm.Expr("? - reserved_stock", actualCount),
			"stock_take_count": gorm.Expr("stock_take_count + 1"),
			"last_stock_take":  now,
			"last_updated":     now,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 低在庫の一覧（available <= minimum）
func (r *InventoryGormRepository) ListBelowMinimum(ctx context.Context, limit int, offset int) ([]model.InventoryRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var recs []model.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("available_stock <= minimum_stock").
		Order("product_id asc").
		Limit(limit).Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
