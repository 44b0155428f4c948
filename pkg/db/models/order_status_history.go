package models

import (
	"time"
)

// OrderStatusHistory is the append-only transition log. ChangedBy is null for
// system-initiated transitions. Rows are never mutated or deleted.
type OrderStatusHistory struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     int64     `gorm:"column:order_id;not null;index"`
	OldStatusID *int64    `gorm:"column:old_status_id"`
	NewStatusID int64     `gorm:"column:new_status_id;not null"`
	ChangedBy   *int64    `gorm:"column:changed_by"`
	Note        *string   `gorm:"column:note"`
	ChangedAt   time.Time `gorm:"column:changed_at;autoCreateTime"`
}

// TableName pins the log table name.
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
