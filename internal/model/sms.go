package model

import (
	"time"
)

const (
	BatchStatusAccepted   = "accepted"
	BatchStatusDispatched = "dispatched"
	BatchStatusRejected   = "rejected"
)

// SendBatch 一次已扣费的短信发送授权记录
type SendBatch struct {
	ID             int64       `gorm:"primaryKey" json:"id"`
	UserID         int64       `gorm:"not null;index" json:"user_id"`
	SenderLabel    string      `gorm:"size:50" json:"sender_label"`
	CountryCode    string      `gorm:"size:10" json:"country_code"`
	Recipients     StringArray `gorm:"type:text;not null" json:"recipients"`
	Body           string      `gorm:"type:text;not null" json:"body"`
	CreditsCharged int64       `gorm:"not null" json:"credits_charged"`
	Status         string      `gorm:"size:20;default:accepted;index" json:"status"`
	CreatedAt      time.Time   `gorm:"index" json:"created_at"`
	DispatchedAt   *time.Time  `json:"dispatched_at,omitempty"`
}

func (SendBatch) TableName() string {
	return "send_batches"
}
