package dispatcher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/osms-business/osms_server/internal/model"
)

var ErrEmptyBatch = errors.New("batch has no recipients")

// Log 不接入运营商，只把每条待发短信写入日志
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.L()
	}
	return &Log{logger: logger}
}

func (d *Log) Dispatch(ctx context.Context, batch *model.SendBatch) error {
	if len(batch.Recipients) == 0 {
		return ErrEmptyBatch
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, to := range batch.Recipients {
		d.logger.Info("sms dispatched",
			zap.Int64("batch_id", batch.ID),
			zap.String("from", batch.SenderLabel),
			zap.String("to", to),
			zap.Int("body_len", len(batch.Body)))
	}
	return nil
}
