package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"go.uber.org/zap"
)

// カタログ側との接点。
// 在庫サブシステムが商品に対して行うのは「作成時の在庫レコード同時作成」と
// 「原価の参照・更新」だけで、それ以外のカタログ編集は別システムの担当。
type ProductUsecase struct {
	tx     repo.TransactionManager
	logger *zap.Logger
}

func NewProductUsecase(tx repo.TransactionManager, logger *zap.Logger) *ProductUsecase {
	return &ProductUsecase{tx: tx, logger: logger}
}

type CreateProductInput struct {
	SKU          string
	Barcode      string
	Name         string
	Description  string
	Price        int64
	CostPrice    int64
	MinimumStock int64
	MaximumStock int64
	IsActive     bool
}

// 商品作成。在庫レコードも同一トランザクションで作る。
// カウンタはminimum/maximum以外すべて0始まり。
func (u *ProductUsecase) CreateProduct(ctx context.Context, actorUserID int64, in CreateProductInput) (int64, error) {
	if actorUserID <= 0 {
		return 0, fmt.Errorf("%w: actor required", ErrValidation)
	}
	if strings.TrimSpace(in.SKU) == "" {
		return 0, fmt.Errorf("%w: sku required", ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return 0, fmt.Errorf("%w: name required", ErrValidation)
	}
	if in.Price < 0 {
		return 0, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if in.CostPrice < 0 {
		return 0, fmt.Errorf("%w: cost_price must be >= 0", ErrValidation)
	}
	if in.MinimumStock < 0 || in.MaximumStock < 0 {
		return 0, fmt.Errorf("%w: stock bounds must be >= 0", ErrValidation)
	}

	var productID int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := time.Now()
		p, err := r.Products().Create(ctx, model.Product{
			SKU:         strings.TrimSpace(in.SKU),
			Barcode:     strings.TrimSpace(in.Barcode),
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Price:       in.Price,
			CostPrice:   in.CostPrice,
			IsActive:    in.IsActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}

		//在庫レコードは商品と同時に1回だけ作る
		if err := r.Inventory().Create(ctx, model.InventoryRecord{
			ProductID:    p.ID,
			MinimumStock: in.MinimumStock,
			MaximumStock: in.MaximumStock,
		}); err != nil {
			return err
		}

		productID = p.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	u.logger.Info("product created",
		zap.Int64("productId", productID),
		zap.String("sku", in.SKU),
		zap.Int64("actorUserId", actorUserID))

	return productID, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, fmt.Errorf("%w: invalid product id", ErrValidation)
	}

	var p model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		p, err = r.Products().FindByID(ctx, productID)
		return err
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}
