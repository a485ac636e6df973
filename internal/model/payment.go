package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusExpired   = "expired"
	PaymentStatusFailed    = "failed"
)

// PaymentIntentTTL pending 意图的有效期，固定 30 分钟
const PaymentIntentTTL = 30 * time.Minute

// PaymentIntent 一次加密货币购买额度的支付意图
type PaymentIntent struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	UserID         int64           `gorm:"not null;index" json:"user_id"`
	PlanID         string          `gorm:"size:30;not null" json:"plan_id"`
	CryptoCurrency string          `gorm:"size:10;not null" json:"crypto_currency"`
	CryptoAmount   decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"crypto_amount"`
	USDAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"usd_amount"`
	Credits        int64           `gorm:"not null" json:"credits"`
	WalletAddress  string          `gorm:"size:128" json:"wallet_address"`
	DepositAddress string          `gorm:"size:128;uniqueIndex;not null" json:"deposit_address"`
	Status         string          `gorm:"size:20;default:pending;index" json:"status"` // pending, confirmed, expired, failed
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	ExpiresAt      time.Time       `gorm:"not null" json:"expires_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}

// IsTerminal 终态不可再迁移
func (p *PaymentIntent) IsTerminal() bool {
	return IsTerminalPaymentStatus(p.Status)
}

func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusConfirmed, PaymentStatusExpired, PaymentStatusFailed:
		return true
	}
	return false
}
