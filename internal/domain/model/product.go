package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品マスタ。SKU/バーコードは一意。
// 在庫側からは product_id の参照と cost_price の更新だけを行う。
type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU         string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"sku"`
	Barcode     string         `gorm:"type:varchar(64);uniqueIndex" json:"barcode"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	CostPrice   int64          `gorm:"not null;default:0" json:"cost_price"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
