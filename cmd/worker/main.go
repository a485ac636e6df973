package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/osms-business/osms_server/config"
	"github.com/osms-business/osms_server/internal/database"
	"github.com/osms-business/osms_server/internal/pkg/dispatcher"
	"github.com/osms-business/osms_server/internal/pkg/pubsub"
	"github.com/osms-business/osms_server/internal/pkg/queue"
	"github.com/osms-business/osms_server/internal/repository"
	"github.com/osms-business/osms_server/internal/worker"
	"github.com/osms-business/osms_server/pkg/logger"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&cfg.Log); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	zap.L().Info("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	zap.L().Info("redis connected")

	dispatchQueue := queue.NewQueue(rdb, cfg.Queue.DispatchQueue)
	processor := worker.NewProcessor(
		repository.NewSMSRepository(db),
		dispatcher.NewLog(logger.Log),
		pubsub.NewPublisher(rdb),
	)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		zap.L().Info("received shutdown signal")
		cancel()
	}()

	zap.L().Info("worker started", zap.Int("max_workers", cfg.Queue.MaxWorkers))
	worker.Run(ctx, dispatchQueue, processor, cfg.Queue.MaxWorkers)
	zap.L().Info("worker shutdown complete")
}
