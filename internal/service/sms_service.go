package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/phone"
	"github.com/osms-business/osms_server/internal/repository"
)

var ErrNoRecipients = errors.New("没有有效的收件人")

const defaultSenderLabel = "OSMS"

// MessageDispatcher 把已扣费的批次交给下游发送
type MessageDispatcher interface {
	Dispatch(ctx context.Context, batch *model.SendBatch) error
}

type SMSService struct {
	smsRepo    *repository.SMSRepository
	dispatcher MessageDispatcher
}

func NewSMSService(smsRepo *repository.SMSRepository, dispatcher MessageDispatcher) *SMSService {
	return &SMSService{
		smsRepo:    smsRepo,
		dispatcher: dispatcher,
	}
}

// AuthorizeSend 按有效收件人数扣费并记录批次，每个收件人 1 额度。
// 扣费与批次写入在同一事务；之后的发送失败只记录日志，不退还额度。
func (s *SMSService) AuthorizeSend(ctx context.Context, accountID int64, req *dto.SendSMSRequest) (*dto.SendSMSResponse, error) {
	raw := append([]string{}, req.Recipients...)
	if req.RecipientsText != "" {
		raw = append(raw, phone.Split(req.RecipientsText)...)
	}

	recipients := phone.Normalize(raw, phone.Region(req.CountryCode))
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	label := strings.TrimSpace(req.SenderLabel)
	if label == "" {
		label = defaultSenderLabel
	}

	batch := &model.SendBatch{
		UserID:         accountID,
		SenderLabel:    label,
		CountryCode:    strings.TrimSpace(req.CountryCode),
		Recipients:     recipients,
		Body:           req.Body,
		CreditsCharged: int64(len(recipients)),
		Status:         model.BatchStatusAccepted,
	}

	balance, err := s.smsRepo.CreateWithDebit(batch)
	if err != nil {
		return nil, mapLedgerError(err)
	}

	zap.L().Info("send authorized",
		zap.Int64("batch_id", batch.ID),
		zap.Int64("account_id", accountID),
		zap.Int64("credits_charged", batch.CreditsCharged),
		zap.Int64("balance", balance))

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, batch); err != nil {
			zap.L().Error("dispatch failed after debit",
				zap.Int64("batch_id", batch.ID),
				zap.Error(err))
		}
	}

	return &dto.SendSMSResponse{
		BatchID:        batch.ID,
		Recipients:     recipients,
		CreditsCharged: batch.CreditsCharged,
		Balance:        balance,
	}, nil
}

func (s *SMSService) List(accountID int64, page, pageSize int) ([]dto.SendBatchItem, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	batches, total, err := s.smsRepo.ListByUser(accountID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.SendBatchItem, 0, len(batches))
	for _, b := range batches {
		items = append(items, dto.SendBatchItem{
			ID:             b.ID,
			SenderLabel:    b.SenderLabel,
			Recipients:     b.Recipients,
			Body:           b.Body,
			CreditsCharged: b.CreditsCharged,
			Status:         b.Status,
			CreatedAt:      b.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, total, nil
}
