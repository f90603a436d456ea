// internal/apperr/apperr.go

// Package apperr defines the error categories shared by the estimator packages.
//
// Error taxonomy
//
//	ErrMalformedInput     – an intrinsics, depth or request payload failed shape/type
//	                        validation. Surfaced as a request failure (HTTP 400).
//	ErrEmptyMeal          – no recognized items reached the aggregator (HTTP 422).
//	ErrDegenerateGeometry – a mask had no measurable depth. Only returned under the
//	                        strict portion policy; the default policy falls back instead.
//	ErrNotFound           – a stored estimate does not exist (HTTP 404).
//
// Everything else is a plain error wrapped with context.
package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrMalformedInput     = errors.New("malformed input")
	ErrEmptyMeal          = errors.New("meal has no items")
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	ErrNotFound           = errors.New("not found")
)

// Malformedf wraps ErrMalformedInput with a formatted reason.
func Malformedf(format string, args ...any) error {
	return errors.Wrapf(ErrMalformedInput, format, args...)
}

// IsMalformed reports whether err is (or wraps) ErrMalformedInput.
func IsMalformed(err error) bool { return errors.Is(err, ErrMalformedInput) }

// IsEmptyMeal reports whether err is (or wraps) ErrEmptyMeal.
func IsEmptyMeal(err error) bool { return errors.Is(err, ErrEmptyMeal) }

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// HTTPStatus maps an error to the status code the transport layer responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyMeal), errors.Is(err, ErrDegenerateGeometry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
