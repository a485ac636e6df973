package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/osms-business/osms_server/config"
	"github.com/osms-business/osms_server/internal/api"
	"github.com/osms-business/osms_server/internal/api/handler"
	"github.com/osms-business/osms_server/internal/database"
	"github.com/osms-business/osms_server/internal/pkg/address"
	"github.com/osms-business/osms_server/internal/pkg/cron"
	"github.com/osms-business/osms_server/internal/pkg/email"
	"github.com/osms-business/osms_server/internal/pkg/oracle"
	"github.com/osms-business/osms_server/internal/pkg/oss"
	"github.com/osms-business/osms_server/internal/pkg/pricefeed"
	"github.com/osms-business/osms_server/internal/pkg/pubsub"
	"github.com/osms-business/osms_server/internal/pkg/queue"
	"github.com/osms-business/osms_server/internal/pkg/ws"
	"github.com/osms-business/osms_server/internal/repository"
	"github.com/osms-business/osms_server/internal/service"
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

	// 初始化日志
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

	// 初始化 OSS（可选），未配置时账单内联返回
	var statementStore service.StatementStore
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			zap.L().Warn("failed to init OSS client", zap.Error(err))
		} else {
			statementStore = ossClient
			zap.L().Info("OSS client initialized")
		}
	}

	// 初始化 Queue 和 Pub/Sub
	dispatchQueue := queue.NewQueue(rdb, cfg.Queue.DispatchQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	smsRepo := repository.NewSMSRepository(db)

	// 初始化 Service
	confirmOracle, depositMarker := newOracle(&cfg.Payment, rdb)
	prices := pricefeed.NewOverride(pricefeed.NewStatic(cfg.Currencies), rdb)

	authService := service.NewAuthService(userRepo, email.NewService(&cfg.Email, cfg.AppURL), cfg)
	accountService := service.NewAccountService(userRepo, txRepo)
	paymentService := service.NewPaymentService(paymentRepo, userRepo, prices, confirmOracle, address.NewGenerator(), cfg).
		WithPublisher(publisher)
	smsService := service.NewSMSService(smsRepo, dispatchQueue)
	statementService := service.NewStatementService(txRepo, statementStore)

	// 初始化 WebSocket Hub，订阅账户事件并推送给在线连接
	wsHub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := pubsub.NewSubscriber(rdb).Subscribe(ctx, wsHub.Forward); err != nil && ctx.Err() == nil {
			zap.L().Error("account event subscription stopped", zap.Error(err))
		}
	}()

	// 定时清理过期支付
	sweeper := cron.NewService(paymentService, time.Duration(cfg.Payment.SweepIntervalSeconds)*time.Second)
	sweeper.Start()
	defer sweeper.Stop()

	// 初始化 Handler
	pollInterval := time.Duration(cfg.Payment.PollIntervalSeconds) * time.Second
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewAccountHandler(accountService, statementService),
		handler.NewPaymentHandler(paymentService),
		handler.NewSMSHandler(smsService, accountService),
		handler.NewWebSocketHandler(wsHub, paymentService, pollInterval),
		handler.NewWebhookHandler(depositMarker, paymentService),
		cfg,
	)

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router.Setup()}

	go func() {
		zap.L().Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	zap.L().Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown failed", zap.Error(err))
	}
}

// newOracle 按配置选择到账判定方式；redis 模式同时返回充值回调使用的 marker
func newOracle(cfg *config.PaymentConfig, rdb *redis.Client) (service.ConfirmationOracle, handler.DepositMarker) {
	if cfg.OracleMode == "redis" {
		o := oracle.NewRedis(rdb)
		return o, o
	}
	return oracle.NewSimulated(cfg.ConfirmProbability, time.Now().UnixNano()), nil
}
