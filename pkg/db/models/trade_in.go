package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeInProduct is a catalog entry the shop accepts as a trade-in, with the
// base discount amount granted for a unit in reference condition.
type TradeInProduct struct {
	ID                 int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name               string          `gorm:"column:name;not null"`
	BaseDiscountAmount decimal.Decimal `gorm:"column:base_discount_amount;type:numeric(12,2);not null"`
	Active             bool            `gorm:"column:active;not null;default:true"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TradeInCondition scales the base discount by the physical condition of the
// instrument being traded in.
type TradeInCondition struct {
	ID      int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Code    string          `gorm:"column:code;not null;uniqueIndex"`
	Label   string          `gorm:"column:label;not null"`
	Percent decimal.Decimal `gorm:"column:percent;type:numeric(5,2);not null"`
}
