// Package domain provides contracts shared by the business packages.
package domain

// --- Filter & Pagination ---

// ListFilter contains common paging options for list operations.
type ListFilter struct {
	// OrderBy specifies sorting (e.g., "created_at", "-created_at")
	OrderBy string

	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "-created_at",
	}
}

// Normalize clamps paging values into the supported range.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
