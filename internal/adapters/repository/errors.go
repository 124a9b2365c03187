package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("player not found")
	ErrInvalidStats    = errors.New("stats must not be negative")
	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrClosed          = errors.New("store closed")
)
