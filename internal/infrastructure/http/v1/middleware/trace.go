package middleware

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appctx "freshledger/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

var tracer = otel.Tracer("freshledger/http")

// Client supplied ids end up in logs and stored idempotent responses, so only
// short opaque tokens are accepted.
var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

func clientID(v string) (string, bool) {
	if clientIDPattern.MatchString(v) {
		return v, true
	}
	return "", false
}

// Trace opens a server span per request and attaches request and trace ids
// to the request context. The span's trace id wins when a tracer provider
// is installed; otherwise a valid X-Trace-ID header is kept.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(c.Request.Context(), fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		requestID, ok := clientID(c.GetHeader(HeaderRequestID))
		if !ok {
			requestID = uuid.NewString()
		}

		tc := &appctx.TraceContext{RequestID: requestID}
		if sc := span.SpanContext(); sc.IsValid() {
			tc.TraceID = sc.TraceID().String()
			tc.SpanID = sc.SpanID().String()
		} else {
			if tc.TraceID, ok = clientID(c.GetHeader(HeaderTraceID)); !ok {
				tc.TraceID = uuid.NewString()
			}
			tc.SpanID = uuid.NewString()[:16]
		}
		span.SetAttributes(attribute.String("request_id", requestID))

		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, tc))
		c.Set("trace_id", tc.TraceID)
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, tc.TraceID)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
	}
}
