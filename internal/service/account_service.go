package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/repository"
)

// AccountService 账户余额读写，余额永不为负
type AccountService struct {
	userRepo *repository.UserRepository
	txRepo   *repository.TransactionRepository
}

func NewAccountService(userRepo *repository.UserRepository, txRepo *repository.TransactionRepository) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		txRepo:   txRepo,
	}
}

// Credit 增加额度，返回新余额
func (s *AccountService) Credit(ctx context.Context, accountID, amount int64, reference string) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	if amount == 0 {
		return s.Balance(accountID)
	}

	balance, err := s.userRepo.Credit(accountID, amount, model.TransactionTypeAdjust, reference)
	if err != nil {
		return 0, mapLedgerError(err)
	}

	zap.L().Info("credits added",
		zap.Int64("account_id", accountID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance))
	return balance, nil
}

// Debit 扣减额度；余额不足时返回 ErrInsufficientCredits 且余额不变
func (s *AccountService) Debit(ctx context.Context, accountID, amount int64, reference string) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	if amount == 0 {
		return s.Balance(accountID)
	}

	balance, err := s.userRepo.Debit(accountID, amount, model.TransactionTypeAdjust, reference)
	if err != nil {
		return 0, mapLedgerError(err)
	}

	zap.L().Info("credits deducted",
		zap.Int64("account_id", accountID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance))
	return balance, nil
}

func (s *AccountService) Balance(accountID int64) (int64, error) {
	user, err := s.userRepo.GetByID(accountID)
	if err != nil {
		return 0, mapLedgerError(err)
	}
	return user.Credits, nil
}

// Profile 账户信息
func (s *AccountService) Profile(accountID int64) (*dto.AccountInfo, error) {
	user, err := s.userRepo.GetByID(accountID)
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return buildAccountInfo(user), nil
}

// ListTransactions 分页查询额度流水
func (s *AccountService) ListTransactions(accountID int64, page, pageSize int) ([]dto.TransactionItem, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	entries, total, err := s.txRepo.ListByUser(accountID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.TransactionItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.TransactionItem{
			ID:           e.ID,
			Type:         string(e.Type),
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			Reference:    e.Reference,
			CreatedAt:    e.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, total, nil
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotAuthenticated
	case errors.Is(err, repository.ErrInsufficientBalance):
		return ErrInsufficientCredits
	case errors.Is(err, repository.ErrInvalidAmount):
		return ErrInvalidAmount
	}
	return err
}

func buildAccountInfo(user *model.User) *dto.AccountInfo {
	return &dto.AccountInfo{
		ID:            user.ID,
		Email:         user.Email,
		FullName:      user.FullName,
		Phone:         user.Phone,
		Credits:       user.Credits,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
