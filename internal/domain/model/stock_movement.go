package model

import "time"

// 在庫変動の種別。
type MovementType string

const (
	MovementReceipt     MovementType = "receipt"
	MovementAdjustment  MovementType = "adjustment"
	MovementReservation MovementType = "reservation"
	MovementStockTake   MovementType = "stock_take"
	MovementReturn      MovementType = "return"
	MovementSale        MovementType = "sale"
	MovementVoid        MovementType = "void"
	MovementDamage      MovementType = "damage"
	MovementTransfer    MovementType = "transfer"
)

// 在庫変動の監査ログ（追記のみ）。
// カウンタを動かしたトランザクションと同一トランザクションで必ず1件作る。
// UPDATE/DELETEは行わない。
type StockMovement struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64 `gorm:"not null;index" json:"product_id"`

	MovementType MovementType `gorm:"type:varchar(20);not null;index" json:"movement_type"`

	//符号付きの変動量
	QuantityChange int64 `gorm:"not null" json:"quantity_change"`

	//変更前後のcurrent_stockスナップショット
	//（予約/予約解除はcurrentが動かないので前後同値、変動量はavailableの増減）
	PreviousStock int64 `gorm:"not null" json:"previous_stock"`
	NewStock      int64 `gorm:"not null" json:"new_stock"`

	//関連伝票（発注・返品など）への参照
	ReferenceID   *int64 `gorm:"index" json:"reference_id"`
	ReferenceType string `gorm:"type:varchar(50)" json:"reference_type"`

	Notes string `gorm:"type:text" json:"notes"`

	//操作したユーザーのID
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
