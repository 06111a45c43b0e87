// Package apperrors defines the failure taxonomy shared by the phone
// normalizer, the OTP gateway client and the HTTP layer.
package apperrors

import (
	stderrors "errors"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrMissingInput reports that the caller omitted a required field.
	ErrMissingInput = stderrors.New("missing required input")
	// ErrInvalidFormat reports a phone number that fails shape validation.
	ErrInvalidFormat = stderrors.New("invalid phone number format")
	// ErrNetwork reports that the provider could not be reached.
	ErrNetwork = stderrors.New("network error")
	// ErrNotFound reports a missing record.
	ErrNotFound = stderrors.New("not found")
	// ErrUnauthorized reports an operation that needs an authenticated session.
	ErrUnauthorized = stderrors.New("unauthorized")
	// ErrConflict reports an operation that is not valid in the current state.
	ErrConflict = stderrors.New("conflict")
)

// ProviderError is returned when the OTP provider answered but signaled failure.
type ProviderError struct {
	Message string
	Code    string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// NewProviderError builds a ProviderError, falling back to def for an empty message.
func NewProviderError(message, code, def string) *ProviderError {
	if message == "" {
		message = def
	}
	return &ProviderError{Message: message, Code: code}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Wrap annotates err with a message and a stack trace.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message and a stack trace.
func Wrapf(err error, format string, args ...any) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// Errorf formats an error with a stack trace.
func Errorf(format string, args ...any) error {
	return pkgerrors.Errorf(format, args...)
}

// Message returns the text a client should see for err.
func Message(err error) string {
	var perr *ProviderError
	switch {
	case As(err, &perr):
		return perr.Message
	case Is(err, ErrMissingInput):
		return ErrMissingInput.Error()
	case Is(err, ErrInvalidFormat):
		return ErrInvalidFormat.Error()
	case Is(err, ErrNetwork):
		return ErrNetwork.Error()
	case Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case Is(err, ErrUnauthorized):
		return ErrUnauthorized.Error()
	}
	return err.Error()
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	var perr *ProviderError
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrMissingInput), Is(err, ErrInvalidFormat):
		return http.StatusBadRequest
	case As(err, &perr):
		return http.StatusUnprocessableEntity
	case Is(err, ErrNetwork):
		return http.StatusBadGateway
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case Is(err, ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
