package domain

import (
	"errors"
	"strings"
)

// PasswordResetCode is the B2C error raised when the user picks
// "forgot password" inside a sign-in policy.
const PasswordResetCode = "AADB2C90118"

// Error kinds carried in failure event payloads.
const (
	KindPasswordReset       = "password_reset"
	KindUserCancelled       = "user_cancelled"
	KindInteractionRequired = "interaction_required"
	KindService             = "service"
	KindClient              = "client"
	KindUnclassified        = "unclassified"
)

// Classify maps an operation error to the state reported to the caller.
// Errors nobody could classify are reported as CLIENT_ERROR; ErrorKind
// tells them apart.
func Classify(err error) OperationState {
	switch ErrorKind(err) {
	case KindPasswordReset:
		return StatePasswordReset
	case KindUserCancelled:
		return StateUserCancelled
	case KindInteractionRequired:
		return StateInteractionRequired
	case KindService:
		return StateServiceError
	default:
		return StateClientError
	}
}

// ErrorKind names the classification of err.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPasswordReset), strings.Contains(err.Error(), PasswordResetCode):
		return KindPasswordReset
	case errors.Is(err, ErrUserCancelled):
		return KindUserCancelled
	case errors.Is(err, ErrInteractionRequired):
		return KindInteractionRequired
	case errors.Is(err, ErrServiceFailure):
		return KindService
	case errors.Is(err, ErrConfigNotFound),
		errors.Is(err, ErrConfigInvalid),
		errors.Is(err, ErrNoAuthority),
		errors.Is(err, ErrInvalidAuthority),
		errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrSubjectNotFound),
		errors.Is(err, ErrSubjectNotAuthenticated),
		errors.Is(err, ErrInvalidArgument):
		return KindClient
	default:
		return KindUnclassified
	}
}

// ErrorPayload builds the data of a failure event.
func ErrorPayload(err error) map[string]any {
	return map[string]any{
		"kind":    ErrorKind(err),
		"message": err.Error(),
	}
}
