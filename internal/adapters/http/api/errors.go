package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/s3m-esports/standings/internal/adapters/directory"
	"github.com/s3m-esports/standings/internal/adapters/http/auth"
	"github.com/s3m-esports/standings/internal/adapters/repository"
	"github.com/s3m-esports/standings/internal/app/gateway"
	"github.com/s3m-esports/standings/internal/app/inbox"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("too many requests")
	ErrForbidden   = errors.New("forbidden")
	ErrStreaming   = errors.New("streaming unsupported")
)

// Error ties a failure to the handler operation that produced it. Kind is
// the sentinel callers match with errors.Is.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error { return &Error{Op: op, Kind: kind} }

// Wrap attaches op to err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind attaches op and kind to err.
func WrapKind(op string, kind, err error) error { return &Error{Op: op, Kind: kind, Err: err} }

// classify maps an error to its HTTP status and wire code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidStats),
		errors.Is(err, repository.ErrInvalidPlayerID),
		errors.Is(err, gateway.ErrEmptyPatch),
		errors.Is(err, inbox.ErrInvalidNotification),
		errors.Is(err, directory.ErrInvalidProfile):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden),
		errors.Is(err, gateway.ErrUnauthorized),
		errors.Is(err, inbox.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, inbox.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, gateway.ErrRecomputationFailed):
		return http.StatusServiceUnavailable, "recompute_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// classifyStatus names a status written without an API error, such as the
// mux's own 404 and 405 answers.
func classifyStatus(status int) (int, string) {
	switch {
	case status >= http.StatusInternalServerError:
		return status, "internal_error"
	case status == http.StatusTooManyRequests:
		return status, "rate_limited"
	case status == http.StatusNotFound:
		return status, "not_found"
	case status == http.StatusUnauthorized:
		return status, "unauthorized"
	case status == http.StatusForbidden:
		return status, "forbidden"
	default:
		return status, "bad_request"
	}
}
