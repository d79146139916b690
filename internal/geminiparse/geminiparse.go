// Package geminiparse parses a single Gemini request line into a
// model.Request.
package geminiparse

import (
	"errors"
	"net"
	"net/url"

	"rubyshd/internal/model"
	"rubyshd/internal/pathnorm"
)

// MaxURLBytes is the Gemini specification's hard cap on request URL length.
const MaxURLBytes = 1024

// LooksLikeGemini reports whether buf opens with a URL scheme token
// (`[A-Za-z][A-Za-z0-9+.-]*:`), the heuristic the protocol demultiplexer uses
// to decide a connection is Gemini rather than malformed HTTPS.
func LooksLikeGemini(buf []byte) bool {
	i := 0
	for i < len(buf) {
		c := buf[i]
		switch {
		case i == 0 && isAlpha(c):
		case i > 0 && (isAlphaNum(c) || c == '+' || c == '.' || c == '-'):
		case c == ':' && i > 0:
			return true
		default:
			return false
		}
		i++
	}
	return false
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}

// Parse parses one CRLF-terminated Gemini request line (CRLF already
// stripped by the caller) into a model.Request.
func Parse(line string, peerAddr net.Addr, identity model.PeerIdentity) (model.Request, error) {
	if len(line) > MaxURLBytes {
		return model.Request{}, model.NewError(model.KindRequestTooLarge, errors.New("gemini URL exceeds 1024 bytes"))
	}

	u, err := url.Parse(line)
	if err != nil {
		return model.Request{}, model.NewError(model.KindMalformedRequest, err)
	}
	if u.Scheme != "gemini" {
		return model.Request{}, model.NewError(model.KindMalformedRequest, errors.New("scheme is not gemini"))
	}
	if u.Host == "" {
		return model.Request{}, model.NewError(model.KindMalformedRequest, errors.New("missing host"))
	}

	path, err := pathnorm.Normalize(u.Path)
	if err != nil {
		return model.Request{}, model.NewError(model.KindBadPath, err)
	}

	return model.Request{
		PeerAddr:     peerAddr,
		Protocol:     model.ProtocolGemini,
		Path:         path,
		Host:         u.Hostname(),
		Query:        u.RawQuery,
		PeerIdentity: identity,
	}, nil
}
