package usecase

import (
	"errors"
	"fmt"
)

var (
	//400 入力不正
	ErrValidation = errors.New("validation error")
	//400 結果が負になる在庫調整
	ErrInvalidAdjustment = errors.New("invalid adjustment")
	//500 トランザクション確定失敗
	ErrTransactionFailure = errors.New("transaction failure")
)

// 予約が販売可能数量を超えたときのエラー。
// いくつまでなら取れたかを呼び出し側へ伝える。
type InsufficientStockError struct {
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available=%d requested=%d", e.Available, e.Requested)
}
