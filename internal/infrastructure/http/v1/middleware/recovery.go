// Package middleware provides HTTP middleware components.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"freshledger/internal/core/apperror"
	"freshledger/pkg/logger"
)

// Recovery turns a panic into a 500 with the request id. The stack goes to
// the log only. A pending idempotency key is failed so a retry of the same
// order or purchase call replays the 500 instead of hanging on the key.
func Recovery(obs RequestObserver) gin.HandlerFunc {
	if obs == nil {
		obs = nopObserver{}
	}
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			route := routeOf(c)
			obs.Panic(route)
			logger.Error(c.Request.Context(), "panic recovered",
				"method", c.Request.Method,
				"route", route,
				"panic", rec,
				"stack", string(debug.Stack()),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			body := gin.H{
				"code":    apperror.CodeInternal,
				"message": "Internal server error",
				"details": map[string]any{"request_id": c.GetString("request_id")},
			}
			failIdempotency(c, http.StatusInternalServerError, body)
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
