package repository

import "errors"

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when a unique email constraint fires.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrConflict is returned when an optimistic version check fails on
	// update; the caller saw a stale copy of the record.
	ErrConflict = errors.New("concurrent update conflict")
)
