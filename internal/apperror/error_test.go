package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientStockMessage(t *testing.T) {
	err := NewInsufficientStock("Plastic", "Kg", decimal.NewFromInt(70), decimal.NewFromInt(71))

	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Contains(t, err.Message, "Plastic")
	assert.Contains(t, err.Message, "available 70 Kg")
	assert.Contains(t, err.Message, "requested 71 Kg")
	assert.Equal(t, "70", err.Details["available"])
}

func TestInsufficientFundsMessage(t *testing.T) {
	err := NewInsufficientFunds(decimal.NewFromInt(250), decimal.RequireFromString("99.5"))
	assert.Equal(t, "insufficient funds: needed 250.00, available 99.50", err.Message)
}

func TestWrapAndHasCode(t *testing.T) {
	assert.NoError(t, Wrap(nil))

	nf := NewNotFound("material", 7)
	wrapped := fmt.Errorf("create sale: %w", nf)
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.Same(t, wrapped, Wrap(wrapped))

	cause := errors.New("connection reset")
	internal := Wrap(cause)
	require.True(t, HasCode(internal, CodeInternal))
	assert.ErrorIs(t, internal, cause)
	assert.False(t, HasCode(cause, CodeInternal))
}

func TestWithDetail(t *testing.T) {
	err := NewValidation("bad").WithDetail("field", "name")
	assert.Equal(t, "name", err.Details["field"])
	assert.Equal(t, "VALIDATION_ERROR: bad", err.Error())
}
