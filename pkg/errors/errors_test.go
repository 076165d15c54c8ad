package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	err := InsufficientStock("prod-1", 5, 3)

	assert.Contains(t, err.Error(), "INSUFFICIENT_STOCK")
	assert.Contains(t, err.Error(), "prod-1")
	assert.True(t, errors.Is(err, ErrInsufficientStock))
}

func TestConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"not found", NotFound("cart item", "p1/M"), http.StatusNotFound},
		{"invalid input", InvalidInput("bad"), http.StatusBadRequest},
		{"insufficient stock", InsufficientStock("p1", 10, 2), http.StatusConflict},
		{"size required", SizeRequired("p1"), http.StatusBadRequest},
		{"product resolution", ProductResolutionFailed("p1", errors.New("boom")), http.StatusBadGateway},
		{"storage unavailable", StorageUnavailable(errors.New("redis down")), http.StatusServiceUnavailable},
		{"conflict", Conflict("concurrent change"), http.StatusConflict},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestHTTPStatus_WrappedSentinels(t *testing.T) {
	wrapped := fmt.Errorf("add to cart: %w", ErrInsufficientStock)
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("mystery")))
}

func TestWrap(t *testing.T) {
	base := ErrStorageUnavail
	wrapped := Wrap(base, "persist cart")

	assert.True(t, errors.Is(wrapped, ErrStorageUnavail))
	assert.Contains(t, wrapped.Error(), "persist cart")
}
