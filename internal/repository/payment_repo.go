package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/osms-business/osms_server/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(intent *model.PaymentIntent) error {
	return r.db.Create(intent).Error
}

func (r *PaymentRepository) GetByID(id int64) (*model.PaymentIntent, error) {
	var intent model.PaymentIntent
	err := r.db.Where("id = ?", id).First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *PaymentRepository) GetByDepositAddress(address string) (*model.PaymentIntent, error) {
	var intent model.PaymentIntent
	err := r.db.Where("deposit_address = ?", address).First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *PaymentRepository) ListByUser(userID int64, page, pageSize int) ([]model.PaymentIntent, int64, error) {
	var items []model.PaymentIntent
	var total int64

	q := r.db.Model(&model.PaymentIntent{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").Offset(offset(page, pageSize)).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// ListPending 按创建时间取待处理的支付意图
func (r *PaymentRepository) ListPending(limit int) ([]model.PaymentIntent, error) {
	var items []model.PaymentIntent
	err := r.db.Where("status = ?", model.PaymentStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// ConfirmAndCredit 把 pending 意图置为 confirmed 并为账户入账，两者在同一事务内。
// 返回 false 表示意图已不是 pending（被其他请求抢先处理），此时不入账。
func (r *PaymentRepository) ConfirmAndCredit(id int64, resolvedAt time.Time) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var intent model.PaymentIntent
		if err := tx.Where("id = ?", id).First(&intent).Error; err != nil {
			return err
		}

		res := tx.Model(&model.PaymentIntent{}).
			Where("id = ? AND status = ?", id, model.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":      model.PaymentStatusConfirmed,
				"resolved_at": resolvedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		ref := fmt.Sprintf("payment:%d", intent.ID)
		if _, err := credit(tx, intent.UserID, intent.Credits, model.TransactionTypePurchase, ref); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// MarkTerminal 把 pending 意图置为 expired 或 failed，返回是否由本次调用完成迁移
func (r *PaymentRepository) MarkTerminal(id int64, status string, resolvedAt time.Time) (bool, error) {
	res := r.db.Model(&model.PaymentIntent{}).
		Where("id = ? AND status = ?", id, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_at": resolvedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
