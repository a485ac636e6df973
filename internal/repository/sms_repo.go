package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/osms-business/osms_server/internal/model"
)

type SMSRepository struct {
	db *gorm.DB
}

func NewSMSRepository(db *gorm.DB) *SMSRepository {
	return &SMSRepository{db: db}
}

// CreateWithDebit 写入发送记录并扣减 CreditsCharged 额度，任一步失败整体回滚
func (r *SMSRepository) CreateWithDebit(batch *model.SendBatch) (int64, error) {
	var balance int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		var err error
		ref := fmt.Sprintf("batch:%d", batch.ID)
		balance, err = debit(tx, batch.UserID, batch.CreditsCharged, model.TransactionTypeConsume, ref)
		return err
	})
	if err != nil {
		batch.ID = 0
	}
	return balance, err
}

func (r *SMSRepository) GetByID(id int64) (*model.SendBatch, error) {
	var batch model.SendBatch
	err := r.db.Where("id = ?", id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *SMSRepository) ListByUser(userID int64, page, pageSize int) ([]model.SendBatch, int64, error) {
	var items []model.SendBatch
	var total int64

	q := r.db.Model(&model.SendBatch{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").Offset(offset(page, pageSize)).Limit(pageSize).Find(&items).Error
	return items, total, err
}

func (r *SMSRepository) UpdateStatus(id int64, status string, dispatchedAt *time.Time) error {
	fields := map[string]interface{}{"status": status}
	if dispatchedAt != nil {
		fields["dispatched_at"] = *dispatchedAt
	}
	return r.db.Model(&model.SendBatch{}).Where("id = ?", id).Updates(fields).Error
}
