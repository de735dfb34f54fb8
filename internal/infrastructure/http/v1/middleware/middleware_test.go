package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"freshledger/internal/core/apperror"
	appctx "freshledger/internal/core/context"
	"freshledger/internal/infrastructure/storage/postgres"
	"freshledger/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator map[string]*appctx.UserContext

func (s stubValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

type stubStore struct {
	acquireErr error
	replay     *postgres.IdempotencyReplay
	operations []string
	hashes     []string
	completed  int
	failed     []int
}

func (s *stubStore) AcquireKey(_ context.Context, _, _, operation, hash string) (*postgres.IdempotencyReplay, error) {
	s.operations = append(s.operations, operation)
	s.hashes = append(s.hashes, hash)
	return s.replay, s.acquireErr
}

func (s *stubStore) CompleteKey(context.Context, string, int, string, any) error {
	s.completed++
	return nil
}

func (s *stubStore) FailKey(_ context.Context, _ string, status int, _ string, _ any) error {
	s.failed = append(s.failed, status)
	return nil
}

func body(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAuthAndRequireRole(t *testing.T) {
	validator := stubValidator{
		"op":    {UserID: "u1", Roles: []string{"operator"}},
		"guest": {UserID: "u2"},
	}
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/private", Auth(validator), RequireRole("operator"), func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetUserID(c.Request.Context()))
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic op", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
		{"missing role", "Bearer guest", http.StatusForbidden, ""},
		{"operator", "bearer op", http.StatusOK, "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperror.NewValidation("bad qty").WithDetail("field", "qty"), http.StatusBadRequest, apperror.CodeValidation},
		{"guard", apperror.NewConsistencyGuard("charge of another customer"), http.StatusUnprocessableEntity, apperror.CodeConsistencyGuard},
		{"lock busy", apperror.NewLockBusy("purchase:p1"), http.StatusConflict, apperror.CodeLockBusy},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperror.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler())
			r.GET("/", func(c *gin.Context) { _ = c.Error(tt.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.status, w.Code)
			b := body(t, w)
			assert.Equal(t, tt.code, b["code"])
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

type recordingObserver struct {
	requests []string
	panics   []string
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.requests = append(o.requests, fmt.Sprintf("%s %s %d", method, route, status))
}

func (o *recordingObserver) Panic(route string) {
	o.panics = append(o.panics, route)
}

func TestRecovery(t *testing.T) {
	obs := &recordingObserver{}
	store := &stubStore{}
	r := gin.New()
	r.Use(Recovery(obs), Trace(), ErrorHandler(), Idempotency(store))
	r.POST("/api/v1/purchases", func(*gin.Context) { panic("secret stack") })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", strings.NewReader(`{}`))
	req.Header.Set(HeaderRequestID, "req-7")
	req.Header.Set(HeaderIdempotencyKey, "k-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	b := body(t, w)
	assert.Equal(t, apperror.CodeInternal, b["code"])
	assert.Equal(t, "req-7", b["details"].(map[string]any)["request_id"])
	assert.NotContains(t, w.Body.String(), "secret stack")
	assert.Equal(t, []string{"/api/v1/purchases"}, obs.panics)
	assert.Equal(t, []int{http.StatusInternalServerError}, store.failed)
}

func TestTrace(t *testing.T) {
	tests := []struct {
		name          string
		requestID     string
		traceID       string
		keepRequestID bool
		keepTraceID   bool
	}{
		{"client ids kept", "req-42", "trace:abc", true, true},
		{"missing ids generated", "", "", false, false},
		{"oversized request id replaced", strings.Repeat("a", 65), "t-1", false, true},
		{"request id with spaces replaced", "drop table", "t 1", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *appctx.TraceContext
			r := gin.New()
			r.Use(Trace())
			r.GET("/orders/:id", func(c *gin.Context) {
				seen = appctx.GetTrace(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/orders/1", nil)
			if tt.requestID != "" {
				req.Header.Set(HeaderRequestID, tt.requestID)
			}
			if tt.traceID != "" {
				req.Header.Set(HeaderTraceID, tt.traceID)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.NotNil(t, seen)
			assert.NotEmpty(t, seen.RequestID)
			assert.NotEmpty(t, seen.TraceID)
			assert.Equal(t, seen.RequestID, w.Header().Get(HeaderRequestID))
			assert.Equal(t, seen.TraceID, w.Header().Get(HeaderTraceID))
			assert.Equal(t, tt.keepRequestID, seen.RequestID == tt.requestID)
			assert.Equal(t, tt.keepTraceID, seen.TraceID == tt.traceID)
		})
	}
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Trace(), Logger(&logger.Logger{SugaredLogger: zap.New(core).Sugar()}, obs))
	r.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/v1/payments", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/api/v1/orders/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/api/v1/reports", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	send := func(method, path string, header ...string) {
		req := httptest.NewRequest(method, path, nil)
		if len(header) == 2 {
			req.Header.Set(header[0], header[1])
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	send(http.MethodGet, "/health/live")
	send(http.MethodPost, "/api/v1/payments?x=1", HeaderIdempotencyKey, "pay-1")
	send(http.MethodGet, "/api/v1/orders/7")
	send(http.MethodGet, "/api/v1/reports")
	send(http.MethodGet, "/nowhere")

	entries := logs.All()
	require.Len(t, entries, 5)
	levels := make([]zapcore.Level, len(entries))
	for i, e := range entries {
		levels[i] = e.Level
	}
	assert.Equal(t, []zapcore.Level{
		zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel, zapcore.WarnLevel,
	}, levels)

	payment := entries[1].ContextMap()
	assert.Equal(t, "pay-1", payment["idempotency_key"])
	assert.Equal(t, "x=1", payment["query"])
	assert.Equal(t, "/api/v1/payments", payment["route"])
	assert.NotEmpty(t, payment["request_id"])
	assert.NotContains(t, entries[2].ContextMap(), "query")

	assert.Equal(t, []string{
		"GET /health/live 200",
		"POST /api/v1/payments 201",
		"GET /api/v1/orders/:id 404",
		"GET /api/v1/reports 503",
		"GET unmatched 404",
	}, obs.requests)
}

func TestIdempotency(t *testing.T) {
	newRouter := func(store *stubStore, status int) *gin.Engine {
		r := gin.New()
		r.Use(ErrorHandler(), Idempotency(store))
		r.POST("/orders/drafts", func(c *gin.Context) {
			if status >= 400 {
				_ = c.Error(apperror.NewValidation("nope"))
				return
			}
			key, s, ok := IdempotencyFromContext(c)
			if ok {
				_ = s.CompleteKey(c.Request.Context(), key, status, "application/json", nil)
			}
			c.JSON(status, gin.H{"ok": true})
		})
		r.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	post := func(r *gin.Engine, key, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders/drafts", strings.NewReader(payload))
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("no key passes through", func(t *testing.T) {
		store := &stubStore{}
		w := post(newRouter(store, http.StatusCreated), "", `{}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, store.operations)
	})

	t.Run("first use completes", func(t *testing.T) {
		store := &stubStore{}
		r := newRouter(store, http.StatusCreated)
		w := post(r, "k1", `{"notes":"a"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, []string{"POST /orders/drafts"}, store.operations)
		assert.Equal(t, 1, store.completed)

		post(r, "k2", `{"notes":"a"}`)
		post(r, "k3", `{"notes":"b"}`)
		require.Len(t, store.hashes, 3)
		assert.Equal(t, store.hashes[0], store.hashes[1])
		assert.NotEqual(t, store.hashes[0], store.hashes[2])
	})

	t.Run("replay", func(t *testing.T) {
		store := &stubStore{replay: &postgres.IdempotencyReplay{
			StatusCode: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"orderId":"x"}`),
		}}
		w := post(newRouter(store, http.StatusCreated), "k1", `{}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"orderId":"x"}`, w.Body.String())
		assert.Zero(t, store.completed)
	})

	t.Run("conflict", func(t *testing.T) {
		store := &stubStore{acquireErr: apperror.NewIdempotencyMismatch("k1")}
		w := post(newRouter(store, http.StatusCreated), "k1", `{}`)
		assert.Equal(t, apperror.CodeIdempotency, body(t, w)["code"])
	})

	t.Run("failure stored", func(t *testing.T) {
		store := &stubStore{}
		w := post(newRouter(store, http.StatusBadRequest), "k1", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []int{http.StatusBadRequest}, store.failed)
	})

	t.Run("oversized body", func(t *testing.T) {
		store := &stubStore{}
		w := post(newRouter(store, http.StatusCreated), "k1", strings.Repeat("x", maxIdempotencyBodyBytes+1))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Empty(t, store.operations)
	})

	t.Run("safe methods skip", func(t *testing.T) {
		store := &stubStore{}
		r := newRouter(store, http.StatusCreated)
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(HeaderIdempotencyKey, "k1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, store.operations)
	})
}
