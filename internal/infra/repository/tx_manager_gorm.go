package repository

import (
	"context"

	repo "pos/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type txReposGorm struct {
	products       repo.ProductRepository
	inventory      repo.InventoryRepository
	movements      repo.MovementRepository
	purchaseOrders repo.PurchaseOrderRepository
}

func (r *txReposGorm) Products() repo.ProductRepository             { return r.products }
func (r *txReposGorm) Inventory() repo.InventoryRepository          { return r.inventory }
func (r *txReposGorm) Movements() repo.MovementRepository           { return r.movements }
func (r *txReposGorm) PurchaseOrders() repo.PurchaseOrderRepository { return r.purchaseOrders }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			products:       NewProductGormRepository(tx),
			inventory:      NewInventoryGormRepository(tx),
			movements:      NewMovementGormRepository(tx),
			purchaseOrders: NewPurchaseOrderGormRepository(tx),
		}
		return fn(r)
	})

	//接続起因の失敗だけをリトライ可能として申告する
	if err != nil && pgconn.SafeToRetry(err) {
		return &repo.TransientError{Cause: err}
	}
	return err
}
