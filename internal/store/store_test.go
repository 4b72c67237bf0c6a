package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsufficientStockErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("checkout: %w", &InsufficientStockError{ProductID: "P001", ProductName: "Tata Salt (1kg)", Available: 2, Requested: 3})

	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	if assert.True(t, errors.As(err, &stockErr)) {
		assert.Equal(t, 2, stockErr.Available)
		assert.Equal(t, "P001", stockErr.ProductID)
	}
	assert.Contains(t, err.Error(), "Available: 2")
}

func TestValidationfWrapsSentinel(t *testing.T) {
	err := Validationf("quantity must be positive for %s", "P002")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: quantity must be positive for P002", err.Error())
}

func TestProductNotFound(t *testing.T) {
	err := ProductNotFound("P999")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "product P999 not found", err.Error())
}
