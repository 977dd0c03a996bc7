package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account security errors. Lockout and code rejection are reported as
	// outcome values, not errors, so they carry no sentinel here.
	ErrThrottled              = errors.New("too many requests")
	ErrAccountDisabled        = errors.New("account is disabled")
	ErrBreachCheckUnavailable = errors.New("breach lookup unavailable")
)
