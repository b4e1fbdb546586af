package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("username already exists")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrInvalidUsername    = fmt.Errorf("invalid username")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrEmptyMessage       = fmt.Errorf("message content is empty")
	ErrMessageTooLong     = fmt.Errorf("message content exceeds the maximum length")
	ErrStoreUnavailable   = fmt.Errorf("message store unavailable")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// WireCode is the machine-readable error identifier pushed to websocket
// clients in "error" events.
type WireCode string

const (
	CodeUnauthorized     WireCode = "unauthorized"
	CodeInvalidMessage   WireCode = "invalid_message"
	CodeStoreUnavailable WireCode = "store_unavailable"
	CodeInternal         WireCode = "internal"
)

// MapToWireCode converts a domain error into the code sent back to the
// offending connection. Anything unrecognized is reported as internal,
// never as a disconnect.
func MapToWireCode(err error) WireCode {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong):
		return CodeInvalidMessage
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return CodeInternal
	}
}

// MapToHTTPStatus converts a domain error into an HTTP status for the REST
// surface (register, login, users, messages).
func MapToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrInvalidUsername),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMessageTooLong):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
