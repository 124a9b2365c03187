package ranking

import "errors"

// Sentinel kinds for rank validation failures.
var (
	ErrGap          = errors.New("rank gap")
	ErrDuplicate    = errors.New("duplicate rank")
	ErrOrder        = errors.New("rank order violated")
	ErrHiddenRanked = errors.New("hidden record ranked")
)
