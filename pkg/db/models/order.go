package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the aggregate root of one purchase transaction. Monetary totals obey
// TotalFinal = TotalItemsPrice - TotalDiscount with TotalDiscount capped at
// half of TotalItemsPrice. Orders are never deleted; cancellation is a terminal
// status.
type Order struct {
	ID              int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          int64             `gorm:"column:user_id;not null;index"`
	StatusID        int64             `gorm:"column:status_id;not null;index"`
	ContactName     string            `gorm:"column:contact_name;not null"`
	DeliveryAddress string            `gorm:"column:delivery_address;not null"`
	DeliveryPhone   string            `gorm:"column:delivery_phone;not null"`
	CommentClient   *string           `gorm:"column:comment_client"`
	CommentInternal *string           `gorm:"column:comment_internal"`
	CanceledReason  *string           `gorm:"column:canceled_reason"`
	CourierTakenAt  *time.Time        `gorm:"column:courier_taken_at"`
	DeliveredAt     *time.Time        `gorm:"column:delivered_at"`
	TotalItemsPrice decimal.Decimal   `gorm:"column:total_items_price;type:numeric(12,2);not null"`
	TotalDiscount   decimal.Decimal   `gorm:"column:total_discount;type:numeric(12,2);not null"`
	TotalFinal      decimal.Decimal   `gorm:"column:total_final;type:numeric(12,2);not null"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TradeIns        []OrderTradeIn    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Assignments     []OrderAssignment `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
