package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/response"
	"github.com/osms-business/osms_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup 注册
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Signup(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotificationDeliveryFailed):
			// 账户已创建，提示用户重发验证邮件
			response.NotificationError(c, "注册成功，但验证邮件发送失败，请稍后重发", resp)
		case errors.Is(err, service.ErrEmailExists):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrWeakPassword),
			errors.Is(err, service.ErrInvalidPhone):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "注册成功，请查收验证邮件", resp)
}

// Login 登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.AuthError(c, err.Error())
		case errors.Is(err, service.ErrEmailNotVerified):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// VerifyEmail 验证邮箱
// POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.VerifyEmail(req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVerifyToken),
			errors.Is(err, service.ErrVerifyTokenExpired):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "邮箱验证成功", resp)
}

// ResendVerification 重发验证邮件
// POST /api/v1/auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.ResendVerification(req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrAlreadyVerified):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrNotificationDeliveryFailed):
			response.NotificationError(c, "", nil)
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "验证邮件已发送", nil)
}
