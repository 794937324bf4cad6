package b2cconfig

import (
	"fmt"

	"b2c-hub/internal/domain"
)

// ErrorKind names why a configuration resource was rejected.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindMalformed    ErrorKind = "malformed"
	KindMissingField ErrorKind = "missing_field"
	KindInvalidField ErrorKind = "invalid_field"
	KindNoAuthority  ErrorKind = "no_authority"
)

// Error is a structured configuration failure. It matches the domain
// sentinel for its kind with errors.Is.
type Error struct {
	Kind  ErrorKind
	Field string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("b2c configuration %s (%s): %v", e.Kind, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("b2c configuration %s (%s)", e.Kind, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("b2c configuration %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("b2c configuration %s", e.Kind)
	}
}

func (e *Error) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindNotFound:
		return domain.ErrConfigNotFound
	case KindNoAuthority:
		return domain.ErrNoAuthority
	default:
		return domain.ErrConfigInvalid
	}
}
