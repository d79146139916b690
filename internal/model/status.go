// Package model holds the protocol-neutral request/response records the rest
// of rubyshd is built around.
package model

import "fmt"

// Status is the fixed, lowercase, underscore-separated status slug set.
// It is the single source of truth for the HTTPS/Gemini code mapping in
// tlsserver.WriteResponse; template decorators and error rendering both resolve through
// the same slug.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusTemporaryRedirect  Status = "temporary_redirect"
	StatusPermanentRedirect  Status = "permanent_redirect"
	StatusBadRequest         Status = "bad_request"
	StatusUnauthenticated    Status = "unauthenticated"
	StatusNotAuthorized      Status = "not_authorized"
	StatusNotFound           Status = "not_found"
	StatusGone               Status = "gone"
	StatusOtherServerError   Status = "other_server_error"
)

type statusCodes struct {
	https       int
	httpsReason string
	gemini      int
}

var statusTable = map[Status]statusCodes{
	StatusSuccess:           {200, "OK", 20},
	StatusTemporaryRedirect: {307, "Temporary Redirect", 30},
	StatusPermanentRedirect: {308, "Permanent Redirect", 31},
	StatusBadRequest:        {400, "Bad Request", 59},
	StatusUnauthenticated:   {401, "Unauthenticated", 60},
	StatusNotAuthorized:     {403, "Forbidden", 61},
	StatusNotFound:          {404, "Not Found", 51},
	StatusGone:              {410, "Gone", 52},
	StatusOtherServerError:  {500, "Internal Server Error", 40},
}

// ParseStatus validates a slug against the fixed set used by the `status`
// template decorator. Unknown slugs are rejected rather than silently mapped
// to success, so a typo in a template surfaces instead of lying about state.
func ParseStatus(slug string) (Status, bool) {
	s := Status(slug)
	_, ok := statusTable[s]
	return s, ok
}

// HTTPCode returns the HTTP/1.1 status code and reason phrase for a slug.
// It panics on an unknown slug: Status values should only ever be constructed
// through ParseStatus or the package constants, so an unknown value here is a
// programming error in rubyshd itself, not a client-triggerable condition.
func (s Status) HTTPCode() (int, string) {
	entry, ok := statusTable[s]
	if !ok {
		panic(fmt.Sprintf("model: status %q has no HTTPS code mapping", s))
	}
	return entry.https, entry.httpsReason
}

// GeminiCode returns the two-digit Gemini status code for a slug.
func (s Status) GeminiCode() int {
	entry, ok := statusTable[s]
	if !ok {
		panic(fmt.Sprintf("model: status %q has no Gemini code mapping", s))
	}
	return entry.gemini
}

func (s Status) String() string {
	return string(s)
}
