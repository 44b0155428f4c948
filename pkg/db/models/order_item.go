package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem snapshots one purchased product line. PriceEach is the catalog
// price at checkout time; the line is never mutated afterwards.
type OrderItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"column:order_id;not null;index"`
	ProductID int64           `gorm:"column:product_id;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	PriceEach decimal.Decimal `gorm:"column:price_each;type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
