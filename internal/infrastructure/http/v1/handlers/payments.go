package handlers

import (
	"github.com/gin-gonic/gin"

	"freshledger/internal/infrastructure/http/v1/dto"
)

// PaymentHandler records customer payments.
type PaymentHandler struct {
	*BaseHandler
	service PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(base *BaseHandler, service PaymentService) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, service: service}
}

// Record handles POST /payments
func (h *PaymentHandler) Record(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.RecordPayment(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// List handles GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	var q dto.PaymentQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListPayments(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// RegisterRoutes registers payment endpoints on rg.
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Record)
}
