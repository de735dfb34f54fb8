package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause)

	wrapped := fmt.Errorf("record purchase: %w", err)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeInternal, appErr.Code)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(wrapped))
}

func TestAppError_Classes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", NewValidation("product_id is required"), CodeValidation, http.StatusBadRequest},
		{"consistency guard", NewConsistencyGuard("customers are required"), CodeConsistencyGuard, http.StatusUnprocessableEntity},
		{"not found", NewNotFound("order", "o-1"), CodeNotFound, http.StatusNotFound},
		{"concurrent", NewConcurrentModification("inventory_lot", "l-1"), CodeConcurrentModification, http.StatusConflict},
		{"lock busy", NewLockBusy("purchase:o:p"), CodeLockBusy, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.True(t, IsCode(tt.err, tt.code))
		})
	}
}

func TestAppError_WithDetail(t *testing.T) {
	err := NewValidation("invalid charged_unit").
		WithDetail("field", "charged_unit").
		WithDetail("value", "box")

	assert.Equal(t, "charged_unit", err.Details["field"])
	assert.Equal(t, "box", err.Details["value"])
	assert.True(t, IsAppError(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsAppError(errors.New("plain")))
}
