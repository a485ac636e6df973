package model

import (
	"time"
)

// User 账户：身份、邮箱验证状态与短信额度余额
type User struct {
	ID                    int64      `gorm:"primaryKey" json:"id"`
	Email                 string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash          string     `gorm:"size:255;not null" json:"-"`
	FullName              string     `gorm:"size:100;not null" json:"full_name"`
	Phone                 string     `gorm:"size:30" json:"phone"`
	Credits               int64      `gorm:"not null;default:0" json:"credits"`
	EmailVerified         bool       `gorm:"default:false" json:"email_verified"`
	VerificationToken     *string    `gorm:"size:100;index" json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
