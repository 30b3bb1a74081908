package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrAlreadyExists indicates an insert collided with an existing record.
	ErrAlreadyExists = errors.New("repository: already exists")
	// ErrExpired indicates the record existed but has outlived its
	// lifetime and was evicted.
	ErrExpired = errors.New("repository: expired")
)
