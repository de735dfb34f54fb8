// Package main is the entry point for the freshledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"freshledger/internal/config"
	"freshledger/internal/core/clock"
	corelock "freshledger/internal/core/lock"
	"freshledger/internal/domain/accounting"
	"freshledger/internal/domain/auth"
	"freshledger/internal/domain/inventory"
	"freshledger/internal/domain/orders"
	"freshledger/internal/domain/payments"
	"freshledger/internal/domain/purchasing"
	v1 "freshledger/internal/infrastructure/http/v1"
	"freshledger/internal/infrastructure/lock"
	"freshledger/internal/infrastructure/metrics"
	"freshledger/internal/infrastructure/numerator"
	"freshledger/internal/infrastructure/storage/postgres"
	"freshledger/internal/infrastructure/storage/postgres/auth_repo"
	"freshledger/internal/infrastructure/storage/postgres/catalog_repo"
	"freshledger/internal/infrastructure/storage/postgres/inventory_repo"
	"freshledger/internal/infrastructure/storage/postgres/migrations"
	"freshledger/internal/infrastructure/storage/postgres/order_repo"
	"freshledger/internal/infrastructure/storage/postgres/payment_repo"
	"freshledger/internal/infrastructure/storage/postgres/purchase_repo"
	"freshledger/internal/infrastructure/storage/postgres/report_repo"
	"freshledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Process:     "server",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting freshledger server", "env", cfg.Env)

	// --- Database ---
	poolCfg := postgres.PoolConfigFor(cfg.DatabaseURL, postgres.RoleServer, cfg.DBMaxConns, cfg.DBStatementTimeout)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := migrateUp(pool); err != nil {
			log.Fatalw("failed to apply migrations", "error", err)
		}
		log.Info("migrations applied")
	}

	txManager := postgres.NewTxManager(pool)
	clk := clock.NewSystem()

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}
	outbox := postgres.NewOutboxPublisher(txManager)
	numbers := numerator.New(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	})

	// --- Locking ---
	var locker corelock.Locker = postgres.NewAdvisoryLocker(pool)
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalw("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		locker = lock.NewRedisLocker(rdb, lock.DefaultRedisConfig())
		log.Infow("using redis locks", "addr", cfg.RedisAddr)
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	poolStats := pool.Stats
	registry.MustRegister(metrics.NewPoolCollector(poolStats))
	engineMetrics := metrics.New(registry)

	// --- Repositories ---
	catalogRepo := catalog_repo.NewRepo(txManager)
	orderRepo := order_repo.NewRepo(txManager)
	purchaseRepo := purchase_repo.NewRepo(txManager)
	paymentRepo := payment_repo.NewRepo(txManager)
	inventoryRepo := inventory_repo.NewRepo(txManager)
	operatorRepo := auth_repo.NewOperatorRepo(txManager)

	// --- Services ---
	inventoryService := inventory.NewService(inventoryRepo, txManager, auditService, clk)

	orderService := orders.NewService(orders.Deps{
		Repo:      orderRepo,
		Catalog:   catalogRepo,
		Customers: catalogRepo,
		Lots:      inventoryService,
		Numerator: numbers,
		TxManager: txManager,
		Events:    outbox,
		Clock:     clk,
	})

	purchaseService := purchasing.NewService(purchasing.Deps{
		Repo:      purchaseRepo,
		Orders:    orderRepo,
		Lots:      inventoryRepo,
		Catalog:   catalogRepo,
		Customers: catalogRepo,
		Prices:    catalogRepo,
		TxManager: txManager,
		Locker:    locker,
		Events:    outbox,
		Audit:     auditService,
		Metrics:   engineMetrics,
		Clock:     clk,
	})

	paymentService := payments.NewService(payments.Deps{
		Repo:      paymentRepo,
		Charges:   orderRepo,
		Customers: catalogRepo,
		TxManager: txManager,
		Locker:    locker,
		Events:    outbox,
		Audit:     auditService,
		Metrics:   engineMetrics,
		Clock:     clk,
	})

	accountingService := accounting.NewService(
		report_repo.NewAccountingReader(orderRepo, purchaseRepo, paymentRepo),
		catalogRepo,
		txManager,
	)

	// --- Auth ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.AccessTokenTTL = cfg.JWTAccessTTL
	jwtService := auth.NewJWTService(jwtConfig)

	authConfig := auth.DefaultServiceConfig()
	authConfig.MaxLoginAttempts = cfg.MaxLoginFails
	authConfig.LockDuration = cfg.LoginLockout
	authService := auth.NewService(operatorRepo, txManager, jwtService, clk, authConfig)

	if cfg.OperatorName != "" {
		if err := authService.Bootstrap(ctx, cfg.OperatorName, cfg.OperatorHash); err != nil {
			log.Fatalw("failed to bootstrap operator", "error", err)
		}
	}

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Logger:       log,
		DB:           pool,
		PoolStats:    poolStats,
		JWTValidator: jwtService,
		AuthService:  authService,
		Orders:       orderService,
		Charges:      orderService,
		Purchases:    purchaseService,
		Payments:     paymentService,
		Accounting:   accountingService,
		Inventory:    inventoryService,
		Audit:        auditService,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		HTTPMetrics:  metrics.NewHTTP(registry),
		Debug:        cfg.IsDevelopment(),
	}
	if cfg.IdempotencyOn {
		routerCfg.Idempotency = postgres.NewIdempotencyStore(pool, txManager, cfg.IdempotencyTTL)
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func migrateUp(pool *postgres.Pool) error {
	m, err := migrations.New(pool.Unwrap())
	if err != nil {
		return err
	}
	return m.Up()
}
