package repository

import (
	"context"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"gorm.io/gorm"
)

type movementGormRepository struct {
	db *gorm.DB
}

func NewMovementGormRepository(db *gorm.DB) repo.MovementRepository {
	return &movementGormRepository{db: db}
}

// 追記のみ。呼び出し元のトランザクションに乗る
func (r *movementGormRepository) Append(ctx context.Context, m model.StockMovement) error {
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	return nil
}

func (r *movementGormRepository) ListByProduct(ctx context.Context, productID int64, filter repo.MovementFilter) ([]model.StockMovement, error) {
	q := r.db.WithContext(ctx).Model(&model.StockMovement{}).Where("product_id = ?", productID)

	if filter.MovementType != nil {
		q = q.Where("movement_type = ?", *filter.MovementType)
	}
	if filter.ActorUserID != nil {
		q = q.Where("actor_user_id = ?", *filter.ActorUserID)
	}
	if filter.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		q = q.Where("created_at <= ?", *filter.CreatedTo)
	}

	//新しい順
	q = q.Order("id DESC")

	// limit/offset
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	q = q.Limit(limit).Offset(filter.Offset)

	var movements []model.StockMovement
	if err := q.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
