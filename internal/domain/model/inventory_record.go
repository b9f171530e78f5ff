package model

import "time"

// 商品ごとの在庫カウンタ（Productと1対1）。
// available_stock = current_stock - reserved_stock を常に保つ。
type InventoryRecord struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64 `gorm:"not null;uniqueIndex" json:"product_id"`

	//実在庫（手元にある総数）
	CurrentStock int64 `gorm:"not null;default:0" json:"current_stock"`

	//注文などで確保済みの数量
	ReservedStock int64 `gorm:"not null;default:0" json:"reserved_stock"`

	//販売可能数量（current - reserved）
	AvailableStock int64 `gorm:"not null;default:0" json:"available_stock"`

	//発注点（下回ったら低在庫アラート対象）
	MinimumStock int64 `gorm:"not null;default:0" json:"minimum_stock"`

	//目安の上限（advisory。超過してもエラーにはしない）
	MaximumStock int64 `gorm:"not null;default:0" json:"maximum_stock"`

	LastUpdated   time.Time  `gorm:"not null;autoUpdateTime" json:"last_updated"`
	LastStockTake *time.Time `json:"last_stock_take"`

	//棚卸の実施回数
	StockTakeCount int64 `gorm:"not null;default:0" json:"stock_take_count"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
