package postgres

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueConstraintViolation(t *testing.T) {
	assert.True(t, isUniqueConstraintViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueConstraintViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_accounts_username" (SQLSTATE 23505)`)))
	assert.False(t, isUniqueConstraintViolation(errors.New("connection refused")))
}

func TestUniqueConstraintColumn(t *testing.T) {
	assert.Equal(t, "username",
		uniqueConstraintColumn(errors.New(`duplicate key value violates unique constraint "idx_accounts_username"`)))
	assert.Equal(t, "email",
		uniqueConstraintColumn(errors.New(`duplicate key value violates unique constraint "idx_accounts_email"`)))
	assert.Empty(t, uniqueConstraintColumn(errors.New("duplicate key value violates unique constraint \"other\"")))
}

func TestIsNotNullConstraintViolation(t *testing.T) {
	assert.True(t, isNotNullConstraintViolation(errors.New(`null value in column "password_hash" violates not-null constraint (SQLSTATE 23502)`)))
	assert.False(t, isNotNullConstraintViolation(errors.New("connection refused")))
}
