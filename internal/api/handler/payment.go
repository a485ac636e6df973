package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osms-business/osms_server/internal/api/middleware"
	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/response"
	"github.com/osms-business/osms_server/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// Plans 套餐与支持的币种
// GET /api/v1/plans
func (h *PaymentHandler) Plans(c *gin.Context) {
	response.Success(c, h.paymentService.Plans())
}

// Create 创建支付意图
// POST /api/v1/payments
func (h *PaymentHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	intent, err := h.paymentService.CreateIntent(c.Request.Context(), userID, req.PlanID, req.CryptoCurrency)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "请在有效期内完成转账", h.buildPaymentInfo(intent))
}

// List 支付记录
// GET /api/v1/payments
func (h *PaymentHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pageParams(c)
	intents, total, err := h.paymentService.List(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	items := make([]dto.PaymentInfo, 0, len(intents))
	for i := range intents {
		items = append(items, h.buildPaymentInfo(&intents[i]))
	}
	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 支付详情，不推进状态
// GET /api/v1/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := pathID(c)
	if !ok {
		response.ParamError(c, "无效的支付 ID")
		return
	}

	intent, err := h.paymentService.Get(userID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, h.buildPaymentInfo(intent))
}

// Status 轮询支付状态，每次调用都会解析一次
// GET /api/v1/payments/:id/status
func (h *PaymentHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := pathID(c)
	if !ok {
		response.ParamError(c, "无效的支付 ID")
		return
	}

	intent, err := h.paymentService.ResolveForAccount(c.Request.Context(), userID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := dto.PaymentStatusResponse{
		ID:               intent.ID,
		Status:           intent.Status,
		SecondsRemaining: h.paymentService.SecondsRemaining(intent),
	}
	if intent.Status == model.PaymentStatusConfirmed {
		resp.Credits = intent.Credits
	}
	response.Success(c, resp)
}

func (h *PaymentHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrUnknownPlan),
		errors.Is(err, service.ErrUnsupportedCurrency):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrIntentNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrPriceUnavailable):
		response.ServerError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

func (h *PaymentHandler) buildPaymentInfo(intent *model.PaymentIntent) dto.PaymentInfo {
	info := dto.PaymentInfo{
		ID:               intent.ID,
		PlanID:           intent.PlanID,
		CryptoCurrency:   intent.CryptoCurrency,
		CryptoAmount:     intent.CryptoAmount.StringFixed(8),
		USDAmount:        intent.USDAmount.StringFixed(2),
		Credits:          intent.Credits,
		DepositAddress:   intent.DepositAddress,
		Status:           intent.Status,
		CreatedAt:        intent.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:        intent.ExpiresAt.UTC().Format(time.RFC3339),
		SecondsRemaining: h.paymentService.SecondsRemaining(intent),
	}
	if intent.ResolvedAt != nil {
		info.ResolvedAt = intent.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return info
}
