// Package errors defines the failure kinds surfaced by the correlation layer and
// converts them to and from the ectoerror HTTP errors used by repositories and handlers.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind is the category of a failure. Each kind maps to one HTTP status.
type Kind string

const (
	KindInvalidParameter    Kind = "InvalidParameter"
	KindCorrelationMismatch Kind = "CorrelationMismatch"
	KindUserNotAuthorized   Kind = "UserNotAuthorized"
	KindNotFound            Kind = "NotFound"
	// KindConflict is a store write that collided with existing state, such as a
	// duplicate key. It is never an identifier mismatch.
	KindConflict       Kind = "Conflict"
	KindPropertyServer Kind = "PropertyServerException"
)

// Sentinels for errors.Is. They carry no message.
var (
	ErrInvalidParameter    = &Error{Kind: KindInvalidParameter}
	ErrCorrelationMismatch = &Error{Kind: KindCorrelationMismatch}
	ErrUserNotAuthorized   = &Error{Kind: KindUserNotAuthorized}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrPropertyServer      = &Error{Kind: KindPropertyServer}
)

// Error is a failure of a named manager operation.
type Error struct {
	Kind    Kind
	Method  string
	Message string
	Meta    map[string]any
	Err     error
}

// New builds an error of kind with a formatted message.
func New(kind Kind, method string, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Method:  method,
		Message: fmt.Sprintf(format, args...),
	}
}

// InvalidParameter reports a bad argument.
func InvalidParameter(method string, format string, args ...any) *Error {
	return New(KindInvalidParameter, method, format, args...)
}

// CorrelationMismatch reports an identifier that differs from the stored one.
func CorrelationMismatch(method string, format string, args ...any) *Error {
	return New(KindCorrelationMismatch, method, format, args...)
}

// UserNotAuthorized reports a caller that may not perform the operation.
func UserNotAuthorized(method string, format string, args ...any) *Error {
	return New(KindUserNotAuthorized, method, format, args...)
}

// NotFound reports a missing element, record or asset manager.
func NotFound(method string, format string, args ...any) *Error {
	return New(KindNotFound, method, format, args...)
}

// Conflict reports a write that collided with existing state.
func Conflict(method string, format string, args ...any) *Error {
	return New(KindConflict, method, format, args...)
}

// PropertyServer reports a failure of the stores.
func PropertyServer(method string, format string, args ...any) *Error {
	return New(KindPropertyServer, method, format, args...)
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Method != "" {
		b.WriteString(e.Method)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can test against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// AddMetaValue sets a meta value and returns e.
func (e *Error) AddMetaValue(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[key] = value
	return e
}

func (e *Error) StatusCode() int {
	return StatusCode(e.Kind)
}

// ToHTTPError converts e for the echo error handler. The kind and method travel as meta.
func (e *Error) ToHTTPError() *httperror.HTTPError {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	herr := httperror.NewHTTPError(e.StatusCode(), msg).
		AddMetaValue("kind", string(e.Kind))
	if e.Method != "" {
		herr = herr.AddMetaValue("method", e.Method)
	}
	for k, v := range e.Meta {
		herr = herr.AddMetaValue(k, v)
	}
	return herr
}

// StatusCode returns the HTTP status of kind.
func StatusCode(kind Kind) int {
	switch kind {
	case KindInvalidParameter:
		return http.StatusBadRequest
	case KindCorrelationMismatch, KindConflict:
		return http.StatusConflict
	case KindUserNotAuthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// KindForStatus maps an HTTP status code onto a kind. A bare 409 is a Conflict;
// CorrelationMismatch only comes from an *Error that already carries that kind.
func KindForStatus(code int) Kind {
	switch {
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return KindInvalidParameter
	case code == http.StatusConflict:
		return KindConflict
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindUserNotAuthorized
	case code == http.StatusNotFound:
		return KindNotFound
	default:
		return KindPropertyServer
	}
}

// Classify converts any collaborator error into an *Error. Errors that already carry a
// kind keep it; the method is added when missing. Nil stays nil.
func Classify(method string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		if e.Method != "" {
			return e
		}
		clone := *e
		clone.Method = method
		return &clone
	}

	if httperror.IsHTTPError(err) {
		return &Error{
			Kind:    KindForStatus(httperror.GetStatusCode(err)),
			Method:  method,
			Message: httperror.ToHTTPError(err).Error(),
			Err:     err,
		}
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindPropertyServer, Method: method, Message: "request cancelled or timed out", Err: err}
	}

	return &Error{Kind: KindPropertyServer, Method: method, Message: err.Error(), Err: err}
}

// WithMeta returns a copy of err with the meta value added. Errors that are not an
// *Error are returned unchanged.
func WithMeta(err error, key string, value any) error {
	var e *Error
	if !stderrors.As(err, &e) {
		return err
	}
	clone := *e
	clone.Meta = maps.Clone(e.Meta)
	return clone.AddMetaValue(key, value)
}

// KindOf returns the kind of err. Unknown errors are PropertyServer.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	if httperror.IsHTTPError(err) {
		return KindForStatus(httperror.GetStatusCode(err))
	}
	return KindPropertyServer
}

func IsInvalidParameter(err error) bool    { return stderrors.Is(err, ErrInvalidParameter) }
func IsCorrelationMismatch(err error) bool { return stderrors.Is(err, ErrCorrelationMismatch) }
func IsUserNotAuthorized(err error) bool   { return stderrors.Is(err, ErrUserNotAuthorized) }
func IsNotFound(err error) bool            { return stderrors.Is(err, ErrNotFound) }
func IsConflict(err error) bool            { return stderrors.Is(err, ErrConflict) }
func IsPropertyServer(err error) bool      { return stderrors.Is(err, ErrPropertyServer) }
