package model

import (
	"time"
)

type TransactionType string

const (
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeConsume  TransactionType = "consume"
	TransactionTypeAdjust   TransactionType = "adjust"
)

// CreditTransaction 额度流水，每次余额变动写一条
type CreditTransaction struct {
	ID           int64           `gorm:"primaryKey" json:"id"`
	UserID       int64           `gorm:"not null;index" json:"user_id"`
	Type         TransactionType `gorm:"size:20;not null;index" json:"type"`
	Amount       int64           `gorm:"not null" json:"amount"` // 正数入账，负数扣减
	BalanceAfter int64           `gorm:"not null" json:"balance_after"`
	Reference    string          `gorm:"size:100;index" json:"reference"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
