package model

import "time"

// 発注のステータス。
// PENDING → PARTIAL → RECEIVED の一方向にしか進まない。
type PurchaseOrderStatus string

const (
	PurchaseOrderPending  PurchaseOrderStatus = "PENDING"
	PurchaseOrderPartial  PurchaseOrderStatus = "PARTIAL"
	PurchaseOrderReceived PurchaseOrderStatus = "RECEIVED"
)

type PurchaseOrder struct {
	ID         int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	SupplierID int64               `gorm:"not null;index" json:"supplier_id"`
	Status     PurchaseOrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Notes      string              `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderItem struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PurchaseOrderID int64     `gorm:"not null;index" json:"purchase_order_id"`
	ProductID       int64     `gorm:"not null;index" json:"product_id"`
	OrderedQty      int64     `gorm:"not null" json:"ordered_qty"`
	ReceivedQty     int64     `gorm:"not null;default:0" json:"received_qty"`
	UnitCost        int64     `gorm:"not null;default:0" json:"unit_cost"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 明細全体から発注ステータスを再計算する。
// 全明細が満了ならRECEIVED、1つでも入荷済みならPARTIAL、それ以外はPENDING。
func RecomputePurchaseOrderStatus(items []PurchaseOrderItem) PurchaseOrderStatus {
	if len(items) == 0 {
		return PurchaseOrderPending
	}

	allFull := true
	anyReceived := false
	for _, it := range items {
		if it.ReceivedQty < it.OrderedQty {
			allFull = false
		}
		if it.ReceivedQty > 0 {
			anyReceived = true
		}
	}

	if allFull {
		return PurchaseOrderReceived
	}
	if anyReceived {
		return PurchaseOrderPartial
	}
	return PurchaseOrderPending
}

// ステータスの序列。後退遷移の禁止に使う。
func purchaseOrderStatusRank(s PurchaseOrderStatus) int {
	switch s {
	case PurchaseOrderPartial:
		return 1
	case PurchaseOrderReceived:
		return 2
	default:
		return 0
	}
}

// 現在のステータスと再計算結果から、次に保存すべきステータスを返す。
// 後退する遷移は起こさない。
func NextPurchaseOrderStatus(current, recomputed PurchaseOrderStatus) PurchaseOrderStatus {
	if purchaseOrderStatusRank(recomputed) > purchaseOrderStatusRank(current) {
		return recomputed
	}
	return current
}
