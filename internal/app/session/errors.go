package session

import "errors"

// Sentinel kinds for session errors.
var (
	// ErrClosed is returned when opening a session that was already closed.
	ErrClosed = errors.New("session closed")
	// ErrAlreadyOpen is returned when Open is called twice.
	ErrAlreadyOpen = errors.New("session already open")
)
