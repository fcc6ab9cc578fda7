package model

import "errors"

// Outcomes every store implementation reports with these sentinels (wrapped).
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("time range overlaps an existing booking")
	// ErrDuplicate is a unique key collision on a generated id or cancel token.
	ErrDuplicate = errors.New("duplicate key")
)
