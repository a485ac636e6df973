package api

import (
	"github.com/gin-gonic/gin"

	"github.com/osms-business/osms_server/config"
	"github.com/osms-business/osms_server/internal/api/handler"
	"github.com/osms-business/osms_server/internal/api/middleware"
)

type Router struct {
	authHandler      *handler.AuthHandler
	accountHandler   *handler.AccountHandler
	paymentHandler   *handler.PaymentHandler
	smsHandler       *handler.SMSHandler
	websocketHandler *handler.WebSocketHandler
	webhookHandler   *handler.WebhookHandler
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	accountHandler *handler.AccountHandler,
	paymentHandler *handler.PaymentHandler,
	smsHandler *handler.SMSHandler,
	websocketHandler *handler.WebSocketHandler,
	webhookHandler *handler.WebhookHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		accountHandler:   accountHandler,
		paymentHandler:   paymentHandler,
		smsHandler:       smsHandler,
		websocketHandler: websocketHandler,
		webhookHandler:   webhookHandler,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/signup", r.authHandler.Signup)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/verify-email", r.authHandler.VerifyEmail)
			auth.POST("/resend-verification", r.authHandler.ResendVerification)
		}

		// 公开接口 - 套餐
		api.GET("/plans", r.paymentHandler.Plans)

		// 充值回调
		api.POST("/webhooks/deposits",
			middleware.WebhookSecret(r.cfg.Payment.WebhookSecret),
			r.webhookHandler.Deposit)

		// 运营调账，与充值回调共用密钥
		api.POST("/admin/adjustments",
			middleware.WebhookSecret(r.cfg.Payment.WebhookSecret),
			r.accountHandler.Adjust)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// WebSocket
			authenticated.GET("/ws", r.websocketHandler.Handle)

			account := authenticated.Group("/account")
			{
				account.GET("", r.accountHandler.GetProfile)
				account.GET("/transactions", r.accountHandler.ListTransactions)
				account.GET("/statement", r.accountHandler.ExportStatement)
			}

			payments := authenticated.Group("/payments")
			{
				payments.POST("", r.paymentHandler.Create)
				payments.GET("", r.paymentHandler.List)
				payments.GET("/:id", r.paymentHandler.Get)
				payments.GET("/:id/status", r.paymentHandler.Status)
			}

			sms := authenticated.Group("/sms")
			{
				sms.POST("/send", r.smsHandler.Send)
				sms.GET("", r.smsHandler.List)
			}
		}
	}

	return engine
}
