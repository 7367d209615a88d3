package repository

import "errors"

var (
	// ErrNotFound is returned when a row or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConcurrentUpdate is returned when an optimistic update kept losing
	// to concurrent writers.
	ErrConcurrentUpdate = errors.New("concurrent update")
)
