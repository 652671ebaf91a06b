package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfiguration   Kind = "configuration"
	KindInvalidInput    Kind = "invalid_input"
	KindPermission      Kind = "permission"
	KindExternalService Kind = "external_service"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrConfiguration   = &Error{Kind: KindConfiguration}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrPermission      = &Error{Kind: KindPermission}
	ErrExternalService = &Error{Kind: KindExternalService}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func Configuration(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...any) error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

// External wraps a failure of the store, renderer or mail transport.
func External(err error, format string, args ...any) error {
	return &Error{Kind: KindExternalService, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of the first *Error in err's chain. Untyped
// errors are treated as external service failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExternalService
}
