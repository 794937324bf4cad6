package channel

import (
	"errors"
	"fmt"

	"b2c-hub/internal/domain"
)

// Method error codes returned to the caller.
const (
	CodeInvalidArguments        = "InvalidArguments"
	CodeNotInitialized          = "NotInitialized"
	CodeSubjectNotExist         = "SubjectNotExist"
	CodeSubjectNotAuthenticated = "SubjectNotAuthenticated"
	CodeNotImplemented          = "NotImplemented"
	CodeInternal                = "InternalError"
)

// MethodError is the structured failure of a method call.
type MethodError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalidArguments(field, reason string) *MethodError {
	return &MethodError{
		Code:    CodeInvalidArguments,
		Message: fmt.Sprintf("invalid argument %q: %s", field, reason),
		Details: map[string]string{"field": field, "reason": reason},
	}
}

// toMethodError maps a provider error to its method error code.
func toMethodError(err error) *MethodError {
	var methodErr *MethodError
	switch {
	case errors.As(err, &methodErr):
		return methodErr
	case errors.Is(err, domain.ErrNotInitialized):
		return &MethodError{Code: CodeNotInitialized, Message: err.Error()}
	case errors.Is(err, domain.ErrSubjectNotFound):
		return &MethodError{Code: CodeSubjectNotExist, Message: err.Error()}
	case errors.Is(err, domain.ErrSubjectNotAuthenticated):
		return &MethodError{Code: CodeSubjectNotAuthenticated, Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidArgument):
		return &MethodError{Code: CodeInvalidArguments, Message: err.Error()}
	default:
		return &MethodError{Code: CodeInternal, Message: err.Error()}
	}
}
