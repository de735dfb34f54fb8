package handlers

import (
	"github.com/gin-gonic/gin"

	"freshledger/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler records purchases and serves them back.
type PurchaseHandler struct {
	*BaseHandler
	service PurchaseService
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(base *BaseHandler, service PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, service: service}
}

// Record handles POST /purchases
func (h *PurchaseHandler) Record(c *gin.Context) {
	var req dto.RecordPurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.RecordPurchase(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Get handles GET /purchases/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
	purchaseID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	view, err := h.service.Get(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// RegisterRoutes registers purchase endpoints on rg.
func (h *PurchaseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Record)
	rg.GET("/:id", h.Get)
}
