package repository

import (
	"context"
	"fmt"
)

// 接続断などの一時的なDB障害。リトライ許可をエラー自身が申告する。
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient database error: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// リトライ許可（Retry Executorが見る）
func (e *TransientError) Retryable() bool { return true }

// トランザクション内で使う約束
type TxRepos interface {
	Products() ProductRepository
	Inventory() InventoryRepository
	Movements() MovementRepository
	PurchaseOrders() PurchaseOrderRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
