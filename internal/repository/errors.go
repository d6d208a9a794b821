package repository

import "errors"

// Storage-level errors. Both store drivers translate their native errors into
// these so the usecase layer never sees pgx or mongo types.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("duplicate: entity already exists")
	ErrConflict      = errors.New("conflict: concurrent modification detected")
	ErrEntryNotFound = errors.New("list entry not found")
)
