package apperror

import "errors"

// Kind classifies an error for API clients independently of the HTTP status.
type Kind string

const (
	KindFormat       Kind = "format_error"
	KindNotFound     Kind = "resource_not_found"
	KindInvalidInput Kind = "invalid_input"
	KindConflict     Kind = "slot_conflict"
	KindNoPrice      Kind = "price_not_found"
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// AppError is a custom error type that includes an HTTP status code and a client-facing kind.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Kind    Kind   // Machine-readable category
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports sentinel equality by identity or by matching Code, Kind and Message,
// so a Wrap of a sentinel still matches the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e == t || (e.Code == t.Code && e.Kind == t.Kind && e.Message == t.Message)
}

// New creates a new AppError with a status code, kind and message.
func New(code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// With returns a copy of sentinel carrying err as its cause.
func With(sentinel *AppError, err error) *AppError {
	return Wrap(err, sentinel.Code, sentinel.Kind, sentinel.Message)
}

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
