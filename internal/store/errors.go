package store

import "errors"

var (
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrClockUnavailable = errors.New("clock unavailable")
)
