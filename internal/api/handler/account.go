package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/osms-business/osms_server/internal/api/middleware"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/response"
	"github.com/osms-business/osms_server/internal/service"
)

type AccountHandler struct {
	accountService   *service.AccountService
	statementService *service.StatementService
}

func NewAccountHandler(accountService *service.AccountService, statementService *service.StatementService) *AccountHandler {
	return &AccountHandler{
		accountService:   accountService,
		statementService: statementService,
	}
}

// GetProfile 当前账户信息与余额
// GET /api/v1/account
func (h *AccountHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	profile, err := h.accountService.Profile(userID)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthenticated) {
			response.AuthError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, profile)
}

// ListTransactions 额度流水
// GET /api/v1/account/transactions
func (h *AccountHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pageParams(c)
	items, total, err := h.accountService.ListTransactions(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// ExportStatement 导出账单 CSV
// GET /api/v1/account/statement
func (h *AccountHandler) ExportStatement(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.statementService.Export(userID)
	if err != nil {
		response.ServerError(c, "账单导出失败")
		return
	}

	response.Success(c, resp)
}

// Adjust 运营调账，补偿或回收额度
// POST /api/v1/admin/adjustments
func (h *AccountHandler) Adjust(c *gin.Context) {
	var req dto.AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var balance int64
	var err error
	if req.Amount > 0 {
		balance, err = h.accountService.Credit(ctx, req.AccountID, req.Amount, req.Reference)
	} else {
		balance, err = h.accountService.Debit(ctx, req.AccountID, -req.Amount, req.Reference)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAuthenticated):
			response.NotFoundError(c, "账户不存在")
		case errors.Is(err, service.ErrInsufficientCredits):
			response.InsufficientCreditsError(c, err.Error(), nil)
		case errors.Is(err, service.ErrInvalidAmount):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, dto.AdjustCreditsResponse{
		AccountID: req.AccountID,
		Balance:   balance,
	})
}
