package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/osms-business/osms_server/internal/pkg/response"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookSecret 校验充值回调的共享密钥，未配置密钥时拒绝所有请求
func WebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(WebhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			response.PermissionError(c, "回调密钥无效")
			c.Abort()
			return
		}
		c.Next()
	}
}
