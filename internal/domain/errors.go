package domain

import "errors"

// Configuration errors.
var (
	ErrConfigNotFound   = errors.New("configuration resource not found")
	ErrConfigInvalid    = errors.New("configuration could not be parsed")
	ErrNoAuthority      = errors.New("no authority URLs specified in configuration")
	ErrInvalidAuthority = errors.New("invalid authority")
)

// Provider state errors.
var (
	ErrNotInitialized          = errors.New("b2c client not initialized")
	ErrSubjectNotFound         = errors.New("unable to find stored user")
	ErrSubjectNotAuthenticated = errors.New("unable to find authenticated user")
	ErrInvalidArgument         = errors.New("invalid argument")
)

// Platform client errors.
var (
	ErrPasswordReset       = errors.New("password reset requested")
	ErrUserCancelled       = errors.New("operation cancelled by user")
	ErrInteractionRequired = errors.New("user interaction required")
	ErrServiceFailure      = errors.New("identity service failure")
)
