package handlers

import (
	"github.com/gin-gonic/gin"

	"freshledger/internal/infrastructure/http/v1/dto"
)

// AuditHandler exposes the change history of an entity.
type AuditHandler struct {
	*BaseHandler
	reader AuditReader
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, reader AuditReader) *AuditHandler {
	return &AuditHandler{BaseHandler: base, reader: reader}
}

// History handles GET /audit/:entityType/:id
func (h *AuditHandler) History(c *gin.Context) {
	entityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var q dto.AuditQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = 50
	}

	entries, err := h.reader.GetEntityHistory(c.Request.Context(), c.Param("entityType"), entityID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}
