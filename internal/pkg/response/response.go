package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess             = 0
	CodeParamError          = 1000
	CodeAuthFailed          = 1001
	CodePermissionDenied    = 1002
	CodeResourceNotFound    = 1003
	CodeInsufficientCredits = 1004
	CodeDuplicateAction     = 1005
	CodeNotificationFailed  = 1006
	CodeServerError         = 5000
)

var codeMessages = map[int]string{
	CodeSuccess:             "success",
	CodeParamError:          "参数错误",
	CodeAuthFailed:          "认证失败",
	CodePermissionDenied:    "权限不足",
	CodeResourceNotFound:    "资源不存在",
	CodeInsufficientCredits: "短信额度不足",
	CodeDuplicateAction:     "重复操作",
	CodeNotificationFailed:  "通知发送失败",
	CodeServerError:         "服务器内部错误",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 分页数据结构
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "success", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: message, Data: data})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	Success(c, PageData{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

// Error 错误响应，message 为空时使用错误码默认消息
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带数据的错误响应，用于部分成功（如注册成功但验证邮件未发出）
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{Code: code, Message: message, Data: data})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// InsufficientCreditsError 余额不足，data 携带当前余额与所需额度
func InsufficientCreditsError(c *gin.Context, message string, data interface{}) {
	ErrorWithData(c, CodeInsufficientCredits, message, data)
}

func DuplicateError(c *gin.Context, message string) {
	Error(c, CodeDuplicateAction, message)
}

func NotificationError(c *gin.Context, message string, data interface{}) {
	ErrorWithData(c, CodeNotificationFailed, message, data)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
