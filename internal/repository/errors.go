package repository

import "errors"

// Common repository errors
var (
	ErrTableConfigNotFound = errors.New("table configuration not found")
	ErrTableConfigExists   = errors.New("table configuration already exists")
	ErrConnectionFailed    = errors.New("storage connection failed")
)
