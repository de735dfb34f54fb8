package dto

// OrderAccountingQuery limits the accounting summary list.
type OrderAccountingQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// CustomerAccountingQuery selects the per-order breakdown.
type CustomerAccountingQuery struct {
	IncludeOrders bool `form:"includeOrders"`
}

// AuditQuery limits the audit history.
type AuditQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}
