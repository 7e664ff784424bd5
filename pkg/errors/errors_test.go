package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", Clone(ErrConflict, "email already registered"))

	got := FromError(wrapped)

	assert.Equal(t, ErrConflict.Code, got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
	assert.Equal(t, "email already registered", got.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
}

func TestClonesMatchOriginalWithErrorsIs(t *testing.T) {
	assert.ErrorIs(t, Clone(ErrCacheMiss, ""), ErrCacheMiss)
	assert.NotErrorIs(t, Clone(ErrNotFound, ""), ErrCacheMiss)
}

func TestValidationCarriesDetails(t *testing.T) {
	got := Validation(errors.New("bad"), "invalid payload", map[string]string{"email": "email is a required field"})

	assert.Equal(t, ErrValidation.Code, got.Code)
	assert.Equal(t, "email is a required field", got.Details["email"])
	assert.Nil(t, Validation(nil, "x", nil).Details)
}

func TestWithDetailsLeavesOriginalUntouched(t *testing.T) {
	got := WithDetails(ErrConflict, map[string]string{"week": "week 3 already exists"})

	assert.Equal(t, "week 3 already exists", got.Details["week"])
	assert.Nil(t, ErrConflict.Details)
	assert.ErrorIs(t, got, ErrConflict)
}
