package user

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("already exists")
	ErrNotFound       = errors.New("not found")
	ErrImmutableField = errors.New("field cannot be changed")
)
