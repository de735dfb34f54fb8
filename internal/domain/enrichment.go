package domain

import (
	"context"

	appctx "freshledger/internal/core/context"
)

// EnrichCreatedBy fills an empty created_by field from the authenticated operator.
func EnrichCreatedBy(ctx context.Context, createdBy *string) {
	if createdBy == nil || *createdBy != "" {
		return
	}
	if user := appctx.GetUser(ctx); user != nil {
		*createdBy = user.UserID
	}
}
