package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"freshledger/internal/core/apperror"
	"freshledger/internal/infrastructure/export"
	"freshledger/internal/infrastructure/http/v1/dto"
)

const defaultAccountingLimit = 20

// AccountingHandler serves the per-order and per-customer financial views.
type AccountingHandler struct {
	*BaseHandler
	service AccountingService
}

// NewAccountingHandler creates a new accounting handler.
func NewAccountingHandler(base *BaseHandler, service AccountingService) *AccountingHandler {
	return &AccountingHandler{BaseHandler: base, service: service}
}

// ListOrders handles GET /accounting/orders
func (h *AccountingHandler) ListOrders(c *gin.Context) {
	var q dto.OrderAccountingQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultAccountingLimit
	}

	list, err := h.service.ListOrderAccounting(c.Request.Context(), q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": list})
}

// GetOrder handles GET /accounting/orders/:id
func (h *AccountingHandler) GetOrder(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	acc, err := h.service.GetOrderAccounting(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, acc)
}

// ExportOrder handles GET /accounting/orders/:id/export.xlsx
func (h *AccountingHandler) ExportOrder(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	acc, err := h.service.GetOrderAccounting(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteOrderAccounting(&buf, acc); err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.OrderAccountingFilename(acc)+`"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

// GetCustomer handles GET /accounting/customers/:id
func (h *AccountingHandler) GetCustomer(c *gin.Context) {
	customerID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var q dto.CustomerAccountingQuery
	if !h.BindQuery(c, &q) {
		return
	}

	acc, err := h.service.GetCustomerAccounting(c.Request.Context(), customerID, q.IncludeOrders)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, acc)
}

// RegisterRoutes registers accounting endpoints on rg.
func (h *AccountingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/orders", h.ListOrders)
	rg.GET("/orders/:id", h.GetOrder)
	rg.GET("/orders/:id/export.xlsx", h.ExportOrder)
	rg.GET("/customers/:id", h.GetCustomer)
}
