package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/osms-business/osms_server/internal/api/middleware"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/response"
	"github.com/osms-business/osms_server/internal/service"
)

type SMSHandler struct {
	smsService     *service.SMSService
	accountService *service.AccountService
}

func NewSMSHandler(smsService *service.SMSService, accountService *service.AccountService) *SMSHandler {
	return &SMSHandler{
		smsService:     smsService,
		accountService: accountService,
	}
}

// Send 授权发送并扣费
// POST /api/v1/sms/send
func (h *SMSHandler) Send(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SendSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.smsService.AuthorizeSend(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRecipients):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrNotAuthenticated):
			response.AuthError(c, err.Error())
		case errors.Is(err, service.ErrInsufficientCredits):
			h.insufficientCredits(c, userID, err)
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "发送请求已受理", resp)
}

// List 发送记录
// GET /api/v1/sms
func (h *SMSHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pageParams(c)
	items, total, err := h.smsService.List(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// insufficientCredits 附带当前余额；余额查询失败时不返回 balance
func (h *SMSHandler) insufficientCredits(c *gin.Context, userID int64, cause error) {
	balance, err := h.accountService.Balance(userID)
	if err != nil {
		zap.L().Warn("balance lookup failed", zap.Int64("account_id", userID), zap.Error(err))
		response.InsufficientCreditsError(c, cause.Error(), nil)
		return
	}
	response.InsufficientCreditsError(c, cause.Error(), gin.H{"balance": balance})
}
