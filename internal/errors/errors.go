package errors

import (
	"fmt"
	"net/http"
)

// Error is a request-scoped failure that maps directly to an HTTP status.
// Anything else bubbling out of a handler is treated as a server-side
// failure for that single request.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Auth(format string, args ...any) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

func RateLimited(window string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: fmt.Sprintf("request limit for the %s window exceeded", window)}
}

var (
	ErrInvalidCredentials    = Validation("invalid credentials")
	ErrEmailAlreadyInUse     = Validation("email already in use")
	ErrMalformedAccessToken  = Validation("malformed access token")
	ErrMissingAccessToken    = Auth("missing or invalid authorization header")
	ErrInvalidAccessToken    = Auth("invalid access token")
	ErrRefreshTokenNotFound  = Auth("refresh token not found")
	ErrAdminRequired         = Forbidden("admin access required")
	ErrUserNotFound          = Validation("user not found")
	ErrUserAlreadyActive     = Validation("user already activated")
	ErrWrongVerificationCode = Validation("wrong verification code")
)
