package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDKey = "requestID"

// Logger 记录每个请求，附带 X-Request-ID
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set(RequestIDKey, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if userID, ok := GetUserID(c); ok {
			fields = append(fields, zap.Int64("user_id", userID))
		}

		if len(c.Errors) > 0 {
			zap.L().Error(c.Errors.String(), fields...)
			return
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			zap.L().Error("server error", fields...)
		case status >= 400:
			zap.L().Warn("client error", fields...)
		default:
			zap.L().Info("request", fields...)
		}
	}
}
