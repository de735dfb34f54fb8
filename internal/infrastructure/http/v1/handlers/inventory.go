package handlers

import (
	"github.com/gin-gonic/gin"

	"freshledger/internal/domain/inventory"
	"freshledger/internal/infrastructure/http/v1/dto"
)

// InventoryHandler handles surplus lots and processing runs.
type InventoryHandler struct {
	*BaseHandler
	service InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service InventoryService) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// ListLots handles GET /inventory/lots
func (h *InventoryHandler) ListLots(c *gin.Context) {
	var q dto.LotQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListLots(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Consume handles POST /inventory/lots/:id/consume
func (h *InventoryHandler) Consume(c *gin.Context) {
	lotID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.ConsumeLotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lot, err := h.service.ConsumeLot(c.Request.Context(), lotID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, lot)
}

// MarkStatus handles POST /inventory/lots/:id/status
func (h *InventoryHandler) MarkStatus(c *gin.Context) {
	lotID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.MarkLotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lot, err := h.service.MarkLot(c.Request.Context(), lotID, inventory.LotStatus(req.Status), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, lot)
}

// RecordProcessing handles POST /inventory/processing
func (h *InventoryHandler) RecordProcessing(c *gin.Context) {
	var req dto.ProcessingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.RecordProcessing(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, rec)
}

// RegisterRoutes registers inventory endpoints on rg.
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/lots", h.ListLots)
	rg.POST("/lots/:id/consume", h.Consume)
	rg.POST("/lots/:id/status", h.MarkStatus)
	rg.POST("/processing", h.RecordProcessing)
}
