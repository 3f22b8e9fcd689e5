package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifiesPostgresErrors(t *testing.T) {
	unique := fmt.Errorf("insert session: %w", &pq.Error{Code: "23505"})
	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsRetryable(unique))

	deadlock := &pq.Error{Code: "40P01"}
	assert.True(t, IsRetryable(deadlock))
	assert.False(t, IsUniqueViolation(deadlock))

	check := &pq.Error{Code: "23514"}
	assert.True(t, IsCheckViolation(check))
	assert.False(t, IsRetryable(check))

	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
}

func TestPlainErrorsAreNotClassified(t *testing.T) {
	err := errors.New("connection refused")
	assert.False(t, IsRetryable(err))
	assert.False(t, IsUniqueViolation(err))
}
