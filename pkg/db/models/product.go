package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item (instrument or accessory) available for purchase.
type Product struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string          `gorm:"column:name;not null"`
	BrandID   *int64          `gorm:"column:brand_id"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Active    bool            `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
