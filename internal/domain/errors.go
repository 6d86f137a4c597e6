package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures so transports can map them to a status.
type ErrorKind int

const (
	// KindUnknown is returned by KindOf for errors that are not *Error.
	KindUnknown ErrorKind = iota
	// KindValidation indicates missing or malformed input.
	KindValidation
	// KindNotFound indicates a referenced employee, order or organization is absent.
	KindNotFound
	// KindForbidden indicates an identity, membership, role or deadline rejection.
	KindForbidden
	// KindUpstream indicates the record store call failed.
	KindUpstream
	// KindConsistencyTimeout indicates a dependent write never became visible.
	KindConsistencyTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindForbidden:
		return "FORBIDDEN"
	case KindUpstream:
		return "UPSTREAM"
	case KindConsistencyTimeout:
		return "UPSTREAM_CONSISTENCY_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
	// Details carries structured context for the caller, e.g. cutoff instants.
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func ForbiddenError(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a record store failure. The upstream message is kept
// verbatim so callers see what the store reported.
func UpstreamError(op string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: op, Cause: cause}
}

func ConsistencyTimeoutError(format string, args ...any) *Error {
	return &Error{Kind: KindConsistencyTimeout, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) ErrorKind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Messages shared by the access checks and their tests.
const (
	MsgOrgMismatch      = "org mismatch"
	MsgInvalidToken     = "invalid token"
	MsgNotActive        = "not active"
	MsgAlreadyCancelled = "order already cancelled"
)
