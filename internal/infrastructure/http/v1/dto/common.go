// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"freshledger/internal/core/id"
	"freshledger/internal/domain"
)

// ListQuery contains paging parameters shared by list endpoints.
type ListQuery struct {
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
	OrderBy string `form:"orderBy"`
}

// ToFilter converts to the domain list filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	return f
}

// ListResponse wraps list results with paging metadata.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// FromListResult copies a domain list result, never returning null items.
func FromListResult[T any](r domain.ListResult[T]) ListResponse[T] {
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, TotalCount: r.TotalCount, Limit: r.Limit, Offset: r.Offset}
}

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body rendered by middleware.ErrorHandler.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// FieldError describes one failed binding rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// parseID converts a string already checked by the uuid binding rule.
func parseID(s string) id.ID {
	v, _ := id.Parse(s)
	return v
}

func parseOptionalID(s *string) *id.ID {
	if s == nil || *s == "" {
		return nil
	}
	v := parseID(*s)
	return &v
}
