package gateway

import "errors"

// Sentinel kinds for gateway errors.
var (
	// ErrUnauthorized is returned when the actor may not mutate records.
	ErrUnauthorized = errors.New("actor is not allowed to modify scores")
	// ErrRecomputationFailed means the write was stored but ranks could not
	// be recomputed; the returned record carries the fresh stats.
	ErrRecomputationFailed = errors.New("rank recomputation failed")
	// ErrEmptyPatch is returned when a stats update changes nothing.
	ErrEmptyPatch = errors.New("patch changes nothing")
)
