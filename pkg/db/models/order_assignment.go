package models

import (
	"time"
)

// OrderAssignment records a staff claim on an order under a functional slot
// (manager=3, courier=4). At most one active row may exist per (order, slot);
// finished claims are deactivated, never deleted, to preserve the audit trail.
type OrderAssignment struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID      int64      `gorm:"column:order_id;not null;index"`
	UserRoleID   int64      `gorm:"column:user_role_id;not null"`
	UserID       int64      `gorm:"column:user_id;not null;index"`
	Active       bool       `gorm:"column:active;not null;default:true"`
	AssignedAt   time.Time  `gorm:"column:assigned_at;autoCreateTime"`
	UnassignedAt *time.Time `gorm:"column:unassigned_at"`
}
