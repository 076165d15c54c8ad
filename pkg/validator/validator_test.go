package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addRequest struct {
	ProductID string `validate:"required"`
	Quantity  int    `validate:"required,gte=1"`
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(addRequest{ProductID: "p1", Quantity: 2}))
}

func TestValidate_Failure(t *testing.T) {
	err := Validate(addRequest{Quantity: 0})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))

	fields := valErr.Fields()
	assert.Contains(t, fields, "ProductID")
	assert.Contains(t, fields, "Quantity")
	assert.Equal(t, "is required", fields["ProductID"])
	assert.Contains(t, err.Error(), "ProductID")
}
