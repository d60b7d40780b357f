package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("analysis not found")
	ErrAlreadyExists = errors.New("analysis already exists")
)
