package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/oracle"
	"github.com/osms-business/osms_server/internal/pkg/response"
	"github.com/osms-business/osms_server/internal/service"
)

// DepositMarker 记录充值地址的到账观测
type DepositMarker interface {
	Mark(ctx context.Context, depositAddress string, obs oracle.Observation) error
}

type WebhookHandler struct {
	marker         DepositMarker
	paymentService *service.PaymentService
}

// NewWebhookHandler marker 为 nil 表示未启用 redis oracle
func NewWebhookHandler(marker DepositMarker, paymentService *service.PaymentService) *WebhookHandler {
	return &WebhookHandler{
		marker:         marker,
		paymentService: paymentService,
	}
}

// Deposit 充值回调：记录观测结果后立即解析对应的支付意图
// POST /api/v1/webhooks/deposits
func (h *WebhookHandler) Deposit(c *gin.Context) {
	if h.marker == nil {
		response.PermissionError(c, "未启用充值回调")
		return
	}

	var req dto.DepositWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	obs, err := oracle.ParseObservation(req.Status)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if err := h.marker.Mark(ctx, req.DepositAddress, obs); err != nil {
		zap.L().Error("mark deposit failed", zap.String("address", req.DepositAddress), zap.Error(err))
		response.ServerError(c, "")
		return
	}

	intent, err := h.paymentService.ResolveByDepositAddress(ctx, req.DepositAddress)
	if err != nil {
		if errors.Is(err, service.ErrIntentNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, dto.PaymentStatusResponse{
		ID:     intent.ID,
		Status: intent.Status,
	})
}
