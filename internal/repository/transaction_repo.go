package repository

import (
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/internal/model"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListByUser 分页查询流水，最新在前
func (r *TransactionRepository) ListByUser(userID int64, page, pageSize int) ([]model.CreditTransaction, int64, error) {
	var items []model.CreditTransaction
	var total int64

	q := r.db.Model(&model.CreditTransaction{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").Offset(offset(page, pageSize)).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// ListAllByUser 导出账单用，按时间正序
func (r *TransactionRepository) ListAllByUser(userID int64) ([]model.CreditTransaction, error) {
	var items []model.CreditTransaction
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error
	return items, err
}

// SumByUser 流水合计，应与账户余额一致
func (r *TransactionRepository) SumByUser(userID int64) (int64, error) {
	var sum int64
	err := r.db.Model(&model.CreditTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}
