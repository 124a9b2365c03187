package feed

import "errors"

// Sentinel kinds for feed errors.
var (
	ErrClosed       = errors.New("feed closed")
	ErrInvalidTopic = errors.New("invalid topic")
)
