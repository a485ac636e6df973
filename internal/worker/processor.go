package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/pkg/queue"
	"github.com/osms-business/osms_server/internal/repository"
	"github.com/osms-business/osms_server/internal/service"
)

// BatchPublisher 发送结果通知
type BatchPublisher interface {
	PublishBatch(ctx context.Context, userID, batchID int64, status string) error
}

// Processor 处理已授权的发送批次
type Processor struct {
	smsRepo    *repository.SMSRepository
	dispatcher service.MessageDispatcher
	publisher  BatchPublisher
	now        func() time.Time
}

func NewProcessor(smsRepo *repository.SMSRepository, dispatcher service.MessageDispatcher, publisher BatchPublisher) *Processor {
	return &Processor{
		smsRepo:    smsRepo,
		dispatcher: dispatcher,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Process 发送一个批次。额度已在授权时扣除，发送失败只把批次标记为 rejected，不退款。
// 非 accepted 状态的批次直接跳过，重复投递的消息不会重复发送。
func (p *Processor) Process(ctx context.Context, msg *queue.DispatchMessage) error {
	batch, err := p.smsRepo.GetByID(msg.BatchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("batch not found, dropping message", zap.Int64("batch_id", msg.BatchID))
			return nil
		}
		return fmt.Errorf("failed to get batch: %w", err)
	}

	if batch.Status != model.BatchStatusAccepted {
		zap.L().Info("batch already handled", zap.Int64("batch_id", batch.ID), zap.String("status", batch.Status))
		return nil
	}

	status := model.BatchStatusDispatched
	var dispatchedAt *time.Time
	dispatchErr := p.dispatcher.Dispatch(ctx, batch)
	if dispatchErr != nil {
		status = model.BatchStatusRejected
	} else {
		now := p.now().UTC()
		dispatchedAt = &now
	}

	if err := p.smsRepo.UpdateStatus(batch.ID, status, dispatchedAt); err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	if p.publisher != nil {
		if err := p.publisher.PublishBatch(ctx, batch.UserID, batch.ID, status); err != nil {
			zap.L().Warn("publish batch event failed", zap.Int64("batch_id", batch.ID), zap.Error(err))
		}
	}

	if dispatchErr != nil {
		return fmt.Errorf("dispatch batch %d: %w", batch.ID, dispatchErr)
	}
	zap.L().Info("batch dispatched",
		zap.Int64("batch_id", batch.ID),
		zap.Int("recipients", len(batch.Recipients)))
	return nil
}
