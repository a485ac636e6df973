package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/internal/model"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建已验证、余额为 0 的测试账户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := next()
	user := &model.User{
		Email:         fmt.Sprintf("test_%d@example.com", n),
		PasswordHash:  "$2a$10$abcdefghijklmnopqrstuvwxyz123456",
		FullName:      fmt.Sprintf("Test User %d", n),
		Phone:         "+15551234567",
		Credits:       0,
		EmailVerified: true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithCredits 设置初始额度
func WithCredits(credits int64) func(*model.User) {
	return func(u *model.User) {
		u.Credits = credits
	}
}

// WithUnverifiedEmail 未验证邮箱，附带验证令牌
func WithUnverifiedEmail(token string, expiresAt time.Time) func(*model.User) {
	return func(u *model.User) {
		u.EmailVerified = false
		u.VerificationToken = &token
		u.VerificationExpiresAt = &expiresAt
	}
}

// WithPassword 设置密码哈希
func WithPassword(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// TestPaymentIntent 创建 professional/BTC 的测试支付意图
func TestPaymentIntent(t *testing.T, db *gorm.DB, userID int64, createdAt time.Time, opts ...func(*model.PaymentIntent)) *model.PaymentIntent {
	t.Helper()

	intent := &model.PaymentIntent{
		UserID:         userID,
		PlanID:         "professional",
		CryptoCurrency: "BTC",
		CryptoAmount:   decimal.RequireFromString("0.00331111"),
		USDAmount:      decimal.NewFromInt(149),
		Credits:        10000,
		DepositAddress: fmt.Sprintf("bc1qtest%d", next()),
		Status:         model.PaymentStatusPending,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(model.PaymentIntentTTL),
	}

	for _, opt := range opts {
		opt(intent)
	}

	if err := db.Create(intent).Error; err != nil {
		t.Fatalf("Failed to create test payment intent: %v", err)
	}

	return intent
}

// WithStatus 设置支付状态
func WithStatus(status string) func(*model.PaymentIntent) {
	return func(p *model.PaymentIntent) {
		p.Status = status
	}
}

// TestSendBatch 创建测试发送记录
func TestSendBatch(t *testing.T, db *gorm.DB, userID int64, recipients []string) *model.SendBatch {
	t.Helper()

	batch := &model.SendBatch{
		UserID:         userID,
		SenderLabel:    "OSMS",
		Recipients:     recipients,
		Body:           "hello",
		CreditsCharged: int64(len(recipients)),
		Status:         model.BatchStatusAccepted,
	}

	if err := db.Create(batch).Error; err != nil {
		t.Fatalf("Failed to create test send batch: %v", err)
	}

	return batch
}
