package domain

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("note not found")
	ErrInvalidID    = errors.New("invalid note id")
)
