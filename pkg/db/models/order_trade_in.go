package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderTradeIn snapshots one trade-in discount line. BaseAmount and Percent are
// copied from the trade-in catalog at checkout time; DiscountAmount already
// includes the traded quantity (base * percent/100 * qty). The quantity itself
// is not stored and is reconstructed for display only.
type OrderTradeIn struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID        int64           `gorm:"column:order_id;not null;index"`
	ProductID      int64           `gorm:"column:product_id;not null"`
	ConditionCode  string          `gorm:"column:condition_code;not null"`
	BaseAmount     decimal.Decimal `gorm:"column:base_amount;type:numeric(12,2);not null"`
	Percent        decimal.Decimal `gorm:"column:percent;type:numeric(5,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
