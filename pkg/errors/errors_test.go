package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrNotFound, "dancer not found"))
	got := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, got.Code)
	assert.Equal(t, "dancer not found", got.Message)
}

func TestFromErrorWrapsPlainError(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
}

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	got := WithDetails(ErrValidation, "bad payload", []string{"records[0].status"})
	assert.NotNil(t, got.Details)
	assert.Nil(t, ErrValidation.Details)
	assert.True(t, errors.Is(got, ErrValidation))
}

func TestRetryableConflict(t *testing.T) {
	got := Retryable(ErrConflict, "session busy")
	assert.True(t, got.Retryable)
	assert.False(t, ErrConflict.Retryable)
	assert.True(t, HasCode(got, ErrConflict.Code))
}
