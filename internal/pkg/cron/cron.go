package cron

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// sweepBatch 每轮最多处理的 pending 意图数
const sweepBatch = 500

// Sweeper 过期支付意图的批量处理者
type Sweeper interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
}

type Service struct {
	sweeper  Sweeper
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewService(sweeper Sweeper, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{
		sweeper:  sweeper,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	s.wg.Add(1)
	go s.runSweep()
	zap.L().Info("cron service started", zap.Duration("interval", s.interval))
}

// Stop 停止定时任务并等待当前一轮结束
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	zap.L().Info("cron service stopped")
}

func (s *Service) runSweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.RunNow(context.Background()); err != nil {
				zap.L().Error("expire sweep failed", zap.Error(err))
			}
		}
	}
}

// RunNow 立即执行一轮过期清理（用于测试或手动触发）
func (s *Service) RunNow(ctx context.Context) (int, error) {
	n, err := s.sweeper.ExpireStale(ctx, sweepBatch)
	if n > 0 {
		zap.L().Info("expired stale payment intents", zap.Int("count", n))
	}
	return n, err
}
