package handlers

import (
	"github.com/gin-gonic/gin"

	"freshledger/internal/infrastructure/http/v1/dto"
)

// OrderHandler handles order drafting, confirmation and surplus reassignment.
type OrderHandler struct {
	*BaseHandler
	service OrderService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service OrderService) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service}
}

// OpenDraft handles POST /orders/drafts
func (h *OrderHandler) OpenDraft(c *gin.Context) {
	var req dto.OpenDraftRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	handle, err := h.service.OpenDraft(c.Request.Context(), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, handle)
}

// AddLines handles POST /orders/:id/lines
func (h *OrderHandler) AddLines(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddLinesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.AddLines(c.Request.Context(), orderID, req.ToInputs())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// RemoveLine handles DELETE /orders/:id/lines/:lineId
func (h *OrderHandler) RemoveLine(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.PathID(c, "lineId")
	if !ok {
		return
	}

	if err := h.service.RemoveLine(c.Request.Context(), orderID, lineID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Confirm handles POST /orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.Confirm(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ReassignExcess handles POST /orders/:id/reassign-excess
func (h *OrderHandler) ReassignExcess(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReassignExcessRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.ReassignExcess(c.Request.Context(), req.ToInput(orderID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	view, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// RegisterRoutes registers order endpoints on rg.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/drafts", h.OpenDraft)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/lines", h.AddLines)
	rg.DELETE("/:id/lines/:lineId", h.RemoveLine)
	rg.POST("/:id/confirm", h.Confirm)
	rg.POST("/:id/reassign-excess", h.ReassignExcess)
}
