package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	excl := fmt.Errorf("insert booking: %w", &pgconn.PgError{Code: "23P01"})
	uniq := &pgconn.PgError{Code: "23505"}

	assert.True(t, IsExclusionViolation(excl))
	assert.False(t, IsExclusionViolation(uniq))
	assert.True(t, IsUniqueViolation(uniq))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsNoRows(fmt.Errorf("wrap: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(nil))
}
