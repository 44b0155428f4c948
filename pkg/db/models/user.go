package models

import (
	"time"
)

// User is an account able to authenticate against the shop API. RoleCode holds
// the stable numeric role id (admin=1, client=2, manager=3, courier=4).
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	FullName     string    `gorm:"column:full_name;not null"`
	Phone        *string   `gorm:"column:phone"`
	RoleCode     int64     `gorm:"column:role_id;not null;default:2"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
