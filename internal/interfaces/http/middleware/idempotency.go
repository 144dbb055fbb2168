package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paintworks/backend/internal/interfaces/http/dto"
)

// Idempotency-Key handling
const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotencyKeyCtxKey    = "idempotency_key"
	MaxIdempotencyKeyLength = 128
)

// IdempotencyKey validates the Idempotency-Key header and exposes it to
// handlers. Replaying the stored result is the service's job.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c), nil))
			return
		}
		if key != "" {
			c.Set(IdempotencyKeyCtxKey, key)
		}
		c.Next()
	}
}

// GetIdempotencyKey returns the validated Idempotency-Key, empty when absent
func GetIdempotencyKey(c *gin.Context) string {
	return c.GetString(IdempotencyKeyCtxKey)
}
