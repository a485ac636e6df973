package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/osms-business/osms_server/internal/model"
)

var (
	// ErrInsufficientBalance 扣减后余额会小于 0
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount 变动额度必须为正数
	ErrInvalidAmount = errors.New("invalid amount")
)

// credit 和 debit 是余额变动的唯一入口，amount 必须为正数
func credit(tx *gorm.DB, userID, amount int64, typ model.TransactionType, reference string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return applyCredits(tx, userID, amount, typ, reference)
}

func debit(tx *gorm.DB, userID, amount int64, typ model.TransactionType, reference string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return applyCredits(tx, userID, -amount, typ, reference)
}

// applyCredits 在事务 tx 内调整余额并写入一条流水，返回调整后的余额。
// delta 为负时使用带条件的 UPDATE，余额不足则不修改任何行。
func applyCredits(tx *gorm.DB, userID, delta int64, typ model.TransactionType, reference string) (int64, error) {
	q := tx.Model(&model.User{}).Where("id = ?", userID)
	if delta < 0 {
		q = q.Where("credits >= ?", -delta)
	}
	res := q.Update("credits", gorm.Expr("credits + ?", delta))
	if res.Error != nil {
		return 0, fmt.Errorf("update credits: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, gorm.ErrRecordNotFound
		}
		return 0, ErrInsufficientBalance
	}

	var balance int64
	if err := tx.Model(&model.User{}).Where("id = ?", userID).Select("credits").Scan(&balance).Error; err != nil {
		return 0, err
	}

	entry := &model.CreditTransaction{
		UserID:       userID,
		Type:         typ,
		Amount:       delta,
		BalanceAfter: balance,
		Reference:    reference,
	}
	if err := tx.Create(entry).Error; err != nil {
		return 0, fmt.Errorf("append ledger: %w", err)
	}

	return balance, nil
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
