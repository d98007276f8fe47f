package domain

import "time"

// AdminUser is a single administrative identity. There is exactly one active
// credential per username; password changes replace the hash wholesale.
type AdminUser struct {
	ID           int64     `gorm:"primaryKey;column:id" json:"id"`
	Username     string    `gorm:"column:username;uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"password"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name used by GORM.
func (AdminUser) TableName() string {
	return "admin_users"
}
