package xpath

import (
	"errors"
	"fmt"
)

var (
	ErrType      = errors.New("invalid type")
	ErrIndex     = errors.New("index out of range")
	ErrArity     = errors.New("invalid number of argument(s)")
	ErrUndefined = errors.New("undefined")
	ErrSyntax    = errors.New("invalid syntax")
	ErrCast      = errors.New("value can not be cast to target type")
	ErrZero      = errors.New("division by zero")
	ErrEmpty     = errors.New("sequence is empty")
	ErrRange     = errors.New("range too large")
)

const (
	CodeSyntax     = "XPST0003"
	CodeUndefined  = "XPST0017"
	CodeType       = "XPTY0004"
	CodeContext    = "XPDY0002"
	CodeBoolean    = "FORG0006"
	CodeCast       = "FORG0001"
	CodeAtomize    = "FOTY0013"
	CodeString     = "FOTY0014"
	CodeIndex      = "FOAY0001"
	CodeZero       = "FOAR0001"
	CodeOverflow   = "FOAR0002"
	CodeUnexpected = "FOER0000"
)

// Error is the failure reported by every operation of the package. Kind is
// one of the sentinel errors above and can be tested with errors.Is. Code is
// the diagnostic code of the condition.
type Error struct {
	Kind  error
	Code  string
	Cause string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func createError(kind error, code, msg string, args ...any) error {
	return &Error{
		Kind:  kind,
		Code:  code,
		Cause: fmt.Sprintf(msg, args...),
	}
}

func typeError(msg string, args ...any) error {
	return createError(ErrType, CodeType, msg, args...)
}

func arityError(code, msg string, args ...any) error {
	return createError(ErrArity, code, msg, args...)
}

func indexError(index, size int) error {
	return createError(ErrIndex, CodeIndex, "index %d out of range [0:%d]", index, size)
}

func undefinedError(msg string, args ...any) error {
	return createError(ErrUndefined, CodeUndefined, msg, args...)
}

func syntaxError(msg string, args ...any) error {
	return createError(ErrSyntax, CodeSyntax, msg, args...)
}

var defaultCodes = map[error]string{
	ErrType:      CodeType,
	ErrIndex:     CodeIndex,
	ErrArity:     CodeType,
	ErrUndefined: CodeUndefined,
	ErrSyntax:    CodeSyntax,
	ErrCast:      CodeCast,
	ErrZero:      CodeZero,
	ErrEmpty:     CodeType,
	ErrRange:     CodeOverflow,
}

// asError turns any error into an *Error, keeping the kind when it is one of
// the package sentinels.
func asError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	for kind, code := range defaultCodes {
		if errors.Is(err, kind) {
			return &Error{
				Kind:  kind,
				Code:  code,
				Cause: err.Error(),
			}
		}
	}
	return &Error{
		Kind:  err,
		Code:  CodeUnexpected,
		Cause: err.Error(),
	}
}

// ErrorCode returns the diagnostic code carried by err or the empty string.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
