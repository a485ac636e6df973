package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/osms-business/osms_server/internal/pkg/queue"
)

const popTimeout = 5 * time.Second

// Source 发送队列
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.DispatchMessage, error)
}

// Run 启动 n 个 worker 循环消费队列，ctx 取消后等待所有 worker 退出
func Run(ctx context.Context, source Source, processor *Processor, n int) {
	if n <= 0 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			loop(ctx, workerID, source, processor)
		}(i)
	}
	wg.Wait()
}

func loop(ctx context.Context, workerID int, source Source, processor *Processor) {
	logger := zap.L().With(zap.Int("worker", workerID))
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			return
		default:
		}

		msg, err := source.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to pop batch", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue // 超时，继续等待
		}

		if err := processor.Process(ctx, msg); err != nil {
			logger.Error("batch failed", zap.Int64("batch_id", msg.BatchID), zap.Error(err))
		}
	}
}
