package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"freshledger/pkg/logger"
)

// RequestObserver receives per-request measurements. metrics.HTTPMetrics
// implements it.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
	Panic(route string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, int, time.Duration) {}
func (nopObserver) Panic(string)                                      {}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

// quietRoute reports health checks and metric scrapes, logged at debug level.
func quietRoute(route string) bool {
	return route == "/metrics" || strings.HasPrefix(route, "/health/")
}

// Logger puts log into the request context and writes one entry per request:
// error level for 5xx, warn for 4xx, info otherwise.
func Logger(log *logger.Logger, obs RequestObserver) gin.HandlerFunc {
	if obs == nil {
		obs = nopObserver{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := routeOf(c)
		obs.ObserveRequest(c.Request.Method, route, status, elapsed)

		kv := []any{
			"method", c.Request.Method,
			"path", path,
			"route", route,
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if query != "" {
			kv = append(kv, "query", query)
		}
		if key := c.GetHeader(HeaderIdempotencyKey); key != "" {
			kv = append(kv, "idempotency_key", key)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			kv = append(kv, "error", errs.String())
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Errorw("http request", kv...)
		case status >= 400:
			l.Warnw("http request", kv...)
		case quietRoute(route):
			l.Debugw("http request", kv...)
		default:
			l.Infow("http request", kv...)
		}
	}
}
