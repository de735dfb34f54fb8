package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"freshledger/internal/infrastructure/storage/postgres"
)

// Version is reported by /health/info; set at build time with -ldflags.
var Version = "dev"

// Pinger checks database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db    Pinger
	stats func() postgres.PoolStats
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger, stats func() postgres.PoolStats) *HealthHandler {
	return &HealthHandler{db: db, stats: stats}
}

// Live handles GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"database": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}

// Info handles GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "freshledger",
		"version": Version,
	}
	if h.stats != nil {
		s := h.stats()
		body["database"] = map[string]any{
			"total_conns":    s.TotalConns,
			"acquired_conns": s.AcquiredConns,
			"idle_conns":     s.IdleConns,
			"max_conns":      s.MaxConns,
			"saturated":      s.Saturated(),
		}
	}
	c.JSON(http.StatusOK, body)
}

// RegisterRoutes registers health endpoints on rg.
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/live", h.Live)
	rg.GET("/ready", h.Ready)
	rg.GET("/info", h.Info)
}
