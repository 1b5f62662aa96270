package services

import (
	"errors"

	"taskboard/internal/store"
)

// ErrEmailExists is returned when a user's email is already taken.
var ErrEmailExists = errors.New("email already exists")

// NotFoundError names the entity whose identifier did not resolve. It
// matches store.ErrNotFound with errors.Is.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

func (e *NotFoundError) Unwrap() error {
	return store.ErrNotFound
}
