// Package apperror defines the structured errors the services return and the
// handlers turn into JSON responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

const (
	CodeInternal                = "INTERNAL_ERROR"
	CodeValidation              = "VALIDATION_ERROR"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeInvalidAmount           = "INVALID_AMOUNT"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeInsufficientFunds       = "INSUFFICIENT_FUNDS"
	CodeNotFound                = "NOT_FOUND"
	CodeDuplicate               = "DUPLICATE_ENTRY"
	CodeConflict                = "CONFLICT"
	CodeCodeGenerationExhausted = "CODE_GENERATION_EXHAUSTED"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func NewValidation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

func NewInvalidQuantity(material string, quantity decimal.Decimal) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    fmt.Sprintf("quantity for '%s' must be greater than zero", material),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"material": material, "quantity": quantity.String()},
	}
}

// NewQuantityTooPrecise rejects quantities the storage would round.
func NewQuantityTooPrecise(material string, quantity decimal.Decimal, places int32) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    fmt.Sprintf("quantity for '%s' accepts at most %d decimal places", material, places),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"material": material, "quantity": quantity.String(), "max_decimals": places},
	}
}

func NewInvalidAmount(message string) *AppError {
	return &AppError{Code: CodeInvalidAmount, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewInsufficientStock names the material with the available and requested quantities.
func NewInsufficientStock(material, unit string, available, requested decimal.Decimal) *AppError {
	return &AppError{
		Code: CodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for '%s': available %s %s, requested %s %s",
			material, available.String(), unit, requested.String(), unit),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"material":  material,
			"unit":      unit,
			"available": available.String(),
			"requested": requested.String(),
		},
	}
}

func NewInsufficientFunds(needed, available decimal.Decimal) *AppError {
	return &AppError{
		Code: CodeInsufficientFunds,
		Message: fmt.Sprintf("insufficient funds: needed %s, available %s",
			needed.StringFixed(2), available.StringFixed(2)),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"needed":    needed.StringFixed(2),
			"available": available.StringFixed(2),
		},
	}
}

func NewDuplicate(entity, field string, value any) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with %s '%v' already exists", entity, field, value),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field},
	}
}

func NewConflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

func NewCodeGenerationExhausted(prefix string, attempts int, cause error) *AppError {
	return &AppError{
		Code:       CodeCodeGenerationExhausted,
		Message:    "could not generate a unique code, retry the operation",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"prefix": prefix, "attempts": attempts},
		Err:        cause,
	}
}

// NewInternal hides the cause from the client but keeps it for logs.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Wrap passes AppErrors through and turns anything else into an internal error.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return NewInternal(err)
}
