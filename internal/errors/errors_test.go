package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := NewValidationError("quantity", 0, "must be at least 1")

	assert.True(t, Is(err, ErrValidation))
	assert.False(t, Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "quantity")

	wrapped := Wrap(err, "create trade")
	var ve *ValidationError
	assert.True(t, As(wrapped, &ve))
	assert.Equal(t, "quantity", ve.Field)
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.OrNil())

	errs = append(errs, NewValidationError("symbol", "", "is required"))
	errs = append(errs, NewValidationError("fees", -1, "cannot be negative"))

	err := errs.OrNil()
	assert.Error(t, err)
	assert.True(t, Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "2 errors")
}

func TestDataErrorUnwrap(t *testing.T) {
	err := NewDataError("history", "RELIANCE", "upstream timeout", ErrTimeout)

	assert.True(t, Is(err, ErrTimeout))
	assert.Equal(t, "data error [history] RELIANCE: upstream timeout: operation timed out", err.Error())

	noCause := NewDataError("quote", "TCS", "empty", nil)
	assert.Equal(t, "data error [quote] TCS: empty", noCause.Error())
}

func TestProviderErrorUnwrap(t *testing.T) {
	err := NewProviderError("gemini", "gemini-2.0-flash", context.DeadlineExceeded)

	assert.True(t, Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "gemini/gemini-2.0-flash")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))

	err := Wrapf(ErrNotFound, "trade %s", "abc")
	assert.Equal(t, fmt.Sprintf("trade abc: %v", ErrNotFound), err.Error())
	assert.True(t, Is(err, ErrNotFound))
}
