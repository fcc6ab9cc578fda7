package storage

import (
	"context"
	_ "embed"

	"github.com/md-rashed-zaman/slotbook/libs/db"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
