package storage

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

func TestMapErr(t *testing.T) {
	err := mapErr(pgx.ErrNoRows, "booking x")
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = mapErr(&pgconn.PgError{Code: "23P01", ConstraintName: "bookings_no_overlap"}, "booking x")
	assert.ErrorIs(t, err, model.ErrConflict)

	other := errors.New("connection reset")
	err = mapErr(other, "booking x")
	assert.Same(t, other, err)
	assert.NotErrorIs(t, err, model.ErrConflict)
	assert.ErrorIs(t, err, model.ErrDuplicate)
}

func TestUniqueViolationIsNotConflict(t *testing.T) {
	err := mapErr(&pgconn.PgError{Code: "23505"}, "booking x")
	assert.NotErrorIs(t, err, model.ErrConflict)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
}

func TestSchemaDeclaresExclusionConstraint(t *testing.T) {
	assert.Contains(t, schemaSQL, "EXCLUDE USING gist")
	assert.Contains(t, schemaSQL, "NOT staff_override")
	assert.True(t, strings.Contains(schemaSQL, "cancel_token   text NOT NULL UNIQUE"))
}

func TestWindowsOrderedByInsertionSequence(t *testing.T) {
	assert.Contains(t, schemaSQL, "seq        bigserial")
	assert.Contains(t, schemaSQL, "ADD COLUMN IF NOT EXISTS seq bigserial")
	assert.Contains(t, listWindowsSQL, "ORDER BY seq ASC")
}
