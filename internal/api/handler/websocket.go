package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/osms-business/osms_server/internal/api/middleware"
	"github.com/osms-business/osms_server/internal/pkg/poller"
	"github.com/osms-business/osms_server/internal/pkg/response"
	"github.com/osms-business/osms_server/internal/pkg/ws"
	"github.com/osms-business/osms_server/internal/service"
)

const (
	msgWatchPayment   = "watch_payment"
	msgUnwatchPayment = "unwatch_payment"
	msgPaymentUpdate  = "payment_update"
	msgError          = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境需要按 cors.allowed_origins 校验 Origin
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// clientMessage 客户端发来的指令
type clientMessage struct {
	Type      string `json:"type"`
	PaymentID int64  `json:"payment_id"`
}

type WebSocketHandler struct {
	hub            *ws.Hub
	paymentService *service.PaymentService
	pollInterval   time.Duration
}

func NewWebSocketHandler(hub *ws.Hub, paymentService *service.PaymentService, pollInterval time.Duration) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		paymentService: paymentService,
		pollInterval:   pollInterval,
	}
}

// Handle WebSocket 连接处理
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(userID, conn)
	h.hub.Register(client)

	go func() {
		defer func() {
			h.hub.Unregister(client)
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			h.handleMessage(client, data)
		}
	}()
}

func (h *WebSocketHandler) handleMessage(client *ws.Client, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(client, "消息格式错误")
		return
	}

	switch msg.Type {
	case msgWatchPayment:
		h.watch(client, msg.PaymentID)
	case msgUnwatchPayment:
		client.Unwatch(msg.PaymentID)
	default:
		h.sendError(client, "未知的消息类型")
	}
}

// watch 为当前连接启动一个支付轮询，进入终态或连接断开时结束
func (h *WebSocketHandler) watch(client *ws.Client, paymentID int64) {
	if _, err := h.paymentService.Get(client.UserID, paymentID); err != nil {
		h.sendError(client, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	token, ok := client.Watch(paymentID, cancel)
	if !ok {
		cancel()
		return
	}

	p := poller.New(h.paymentService.Resolve, h.pollInterval)
	go func() {
		defer client.Release(paymentID, token)

		_, err := p.Poll(ctx, paymentID, func(u poller.Update) {
			if err := client.Send(&ws.Message{Type: msgPaymentUpdate, Data: u}); err != nil {
				zap.L().Debug("ws send failed", zap.Int64("user_id", client.UserID), zap.Error(err))
			}
		})
		if err != nil && ctx.Err() == nil {
			zap.L().Warn("payment poll stopped", zap.Int64("payment_id", paymentID), zap.Error(err))
			h.sendError(client, "支付状态查询失败")
		}
	}()
}

func (h *WebSocketHandler) sendError(client *ws.Client, message string) {
	_ = client.Send(&ws.Message{Type: msgError, Data: gin.H{"message": message}})
}
