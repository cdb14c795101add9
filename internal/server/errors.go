package server

import (
	"errors"
	"net/http"
)

// Sentinel errors for the submission pipeline and view path. The handlers
// in this package classify each failure with one of these; statusFor
// translates it to an HTTP status and writeError sends a text/plain body.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrRejectedCode  = errors.New("code does not comply with the rules")
	ErrRejectedFlags = errors.New("disallowed compiler flags")
	ErrNotFound      = errors.New("submission not found")
	ErrForbidden     = errors.New("forbidden")
)

// statusFor maps a pipeline/view error to its HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrForbidden):
		return 403
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrRejectedCode), errors.Is(err, ErrRejectedFlags):
		return 404
	default:
		return 500
	}
}

// writeError writes body as text/plain with the status derived from kind
// via statusFor. kind classifies the error for the status mapping; body is
// the exact user-facing message.
func writeError(w http.ResponseWriter, kind error, body string) {
	http.Error(w, body, statusFor(kind))
}
