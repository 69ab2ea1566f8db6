package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrCorruptRecord indicates a stored record could not be decoded.
	ErrCorruptRecord = errors.New("repository: corrupt record")
)
