package model

import "errors"

// ErrKind is rubyshd's error taxonomy: each kind carries an implied status
// slug (via Kind.Status) used to turn an error into a Response inside the
// pipeline. Kinds that close the connection without a response
// (HandshakeFailed) are never converted.
type ErrKind int

const (
	KindMalformedRequest ErrKind = iota
	KindRequestTooLarge
	KindBadPath
	KindBadCertificate
	KindNotFound
	KindTemplateError
	KindIoError
	KindInternalError
	KindHandshakeFailed
)

// Error wraps an underlying cause with one of the fixed kinds above so
// callers up the stack can branch on Kind without string matching.
type Error struct {
	Kind  ErrKind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(kind ErrKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func (k ErrKind) String() string {
	switch k {
	case KindMalformedRequest:
		return "malformed_request"
	case KindRequestTooLarge:
		return "request_too_large"
	case KindBadPath:
		return "bad_path"
	case KindBadCertificate:
		return "bad_certificate"
	case KindNotFound:
		return "not_found"
	case KindTemplateError:
		return "template_error"
	case KindIoError:
		return "io_error"
	case KindInternalError:
		return "internal_error"
	case KindHandshakeFailed:
		return "handshake_failed"
	default:
		return "unknown_error"
	}
}

// Status maps an error kind onto the status slug the pipeline seals into a
// Response. HandshakeFailed has no Response counterpart; callers must check
// for it explicitly and close the connection instead.
func (k ErrKind) Status() Status {
	switch k {
	case KindBadPath, KindMalformedRequest:
		return StatusBadRequest
	case KindRequestTooLarge:
		return StatusBadRequest
	case KindBadCertificate:
		return StatusBadRequest
	case KindNotFound:
		return StatusNotFound
	case KindTemplateError, KindIoError, KindInternalError:
		return StatusOtherServerError
	default:
		return StatusOtherServerError
	}
}

// AsError unwraps err into a *Error if any error in its chain is one,
// mirroring the errors.As idiom used throughout rubyshd instead of type
// switches on concrete error values.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
