package repository

import (
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByVerificationToken(token string) (*model.User, error) {
	var user model.User
	err := r.db.Where("verification_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// Credit 增加额度并记账，返回新余额
func (r *UserRepository) Credit(id, amount int64, typ model.TransactionType, reference string) (int64, error) {
	var balance int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = credit(tx, id, amount, typ, reference)
		return err
	})
	return balance, err
}

// Debit 扣减额度并记账；余额不足返回 ErrInsufficientBalance，余额保持不变
func (r *UserRepository) Debit(id, amount int64, typ model.TransactionType, reference string) (int64, error) {
	var balance int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = debit(tx, id, amount, typ, reference)
		return err
	})
	return balance, err
}
