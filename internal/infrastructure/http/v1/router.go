// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"freshledger/internal/domain/auth"
	"freshledger/internal/infrastructure/http/v1/handlers"
	"freshledger/internal/infrastructure/http/v1/middleware"
	"freshledger/internal/infrastructure/storage/postgres"
	"freshledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	// DB and PoolStats back the health endpoints.
	DB        handlers.Pinger
	PoolStats func() postgres.PoolStats

	JWTValidator middleware.JWTValidator
	AuthService  handlers.AuthService

	Orders     handlers.OrderService
	Charges    handlers.ChargeService
	Purchases  handlers.PurchaseService
	Payments   handlers.PaymentService
	Accounting handlers.AccountingService
	Inventory  handlers.InventoryService
	Audit      handlers.AuditReader

	// Idempotency is applied to protected mutating routes when set.
	Idempotency middleware.IdempotencyStore

	// Metrics serves /metrics when set.
	Metrics http.Handler
	// HTTPMetrics observes request latency and panics when set.
	HTTPMetrics middleware.RequestObserver

	Debug bool
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidators()

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	router := gin.New()

	// order matters
	router.Use(middleware.Recovery(cfg.HTTPMetrics))
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(log, cfg.HTTPMetrics))
	router.Use(middleware.ErrorHandler())

	if cfg.DB != nil {
		handlers.NewHealthHandler(cfg.DB, cfg.PoolStats).RegisterRoutes(router.Group("/health"))
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	base := handlers.NewBaseHandler()
	v1 := router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)
	publicAuth := v1.Group("/auth")
	protectedAuth := v1.Group("/auth", middleware.Auth(cfg.JWTValidator))
	authHandler.RegisterRoutes(publicAuth, protectedAuth)

	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	protected.Use(middleware.RequireRole(auth.RoleOperator))
	if cfg.Idempotency != nil {
		protected.Use(middleware.Idempotency(cfg.Idempotency))
	}

	if cfg.Orders != nil {
		handlers.NewOrderHandler(base, cfg.Orders).RegisterRoutes(protected.Group("/orders"))
	}
	if cfg.Charges != nil {
		handlers.NewChargeHandler(base, cfg.Charges).RegisterRoutes(protected.Group("/charges"))
	}
	if cfg.Purchases != nil {
		handlers.NewPurchaseHandler(base, cfg.Purchases).RegisterRoutes(protected.Group("/purchases"))
	}
	if cfg.Payments != nil {
		handlers.NewPaymentHandler(base, cfg.Payments).RegisterRoutes(protected.Group("/payments"))
	}
	if cfg.Accounting != nil {
		handlers.NewAccountingHandler(base, cfg.Accounting).RegisterRoutes(protected.Group("/accounting"))
	}
	if cfg.Inventory != nil {
		handlers.NewInventoryHandler(base, cfg.Inventory).RegisterRoutes(protected.Group("/inventory"))
	}
	if cfg.Audit != nil {
		protected.GET("/audit/:entityType/:id", handlers.NewAuditHandler(base, cfg.Audit).History)
	}

	return router
}
