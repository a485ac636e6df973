package service

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/repository"
)

// statementURLTTL 下载链接有效期（秒）
const statementURLTTL = 15 * 60

// StatementStore 账单文件存储，生产环境为 OSS
type StatementStore interface {
	UploadStatement(userID int64, data []byte, at time.Time) (string, error)
	GetSignedURL(objectKey string, expireSeconds ...int64) (string, error)
}

type StatementService struct {
	txRepo *repository.TransactionRepository
	store  StatementStore
	now    func() time.Time
}

// NewStatementService store 为 nil 时账单内联返回
func NewStatementService(txRepo *repository.TransactionRepository, store StatementStore) *StatementService {
	return &StatementService{
		txRepo: txRepo,
		store:  store,
		now:    time.Now,
	}
}

// Export 导出账户全部额度流水
func (s *StatementService) Export(accountID int64) (*dto.StatementResponse, error) {
	entries, err := s.txRepo.ListAllByUser(accountID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "created_at", "type", "amount", "balance_after", "reference"})
	for _, e := range entries {
		_ = w.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.UTC().Format(time.RFC3339),
			string(e.Type),
			strconv.FormatInt(e.Amount, 10),
			strconv.FormatInt(e.BalanceAfter, 10),
			e.Reference,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	resp := &dto.StatementResponse{Rows: len(entries)}
	if s.store == nil {
		resp.Content = buf.String()
		return resp, nil
	}

	key, err := s.store.UploadStatement(accountID, buf.Bytes(), s.now())
	if err != nil {
		return nil, err
	}
	url, err := s.store.GetSignedURL(key, statementURLTTL)
	if err != nil {
		return nil, err
	}

	zap.L().Info("statement exported", zap.Int64("account_id", accountID), zap.String("key", key))
	resp.URL = url
	return resp, nil
}
