package handlers

import (
	"github.com/gin-gonic/gin"

	"freshledger/internal/infrastructure/http/v1/dto"
)

// ChargeHandler lists charges and records manual ones.
type ChargeHandler struct {
	*BaseHandler
	service ChargeService
}

// NewChargeHandler creates a new charge handler.
func NewChargeHandler(base *BaseHandler, service ChargeService) *ChargeHandler {
	return &ChargeHandler{BaseHandler: base, service: service}
}

// Create handles POST /charges
func (h *ChargeHandler) Create(c *gin.Context) {
	var req dto.CreateChargeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	charge, err := h.service.CreateCharge(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, charge)
}

// List handles GET /charges
func (h *ChargeHandler) List(c *gin.Context) {
	var q dto.ChargeQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListCharges(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// RegisterRoutes registers charge endpoints on rg.
func (h *ChargeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
}
