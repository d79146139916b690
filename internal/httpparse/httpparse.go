// Package httpparse is a tolerant HTTP/1.1 request-line and header parser
// operating on an already-buffered byte slice (the protocol demultiplexer
// hands it exactly the bytes up to the blank line that
// terminates the header block).
package httpparse

import (
	"bytes"
	"net"
	"net/url"
	"strings"

	"rubyshd/internal/model"
	"rubyshd/internal/pathnorm"
)

var allowedMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"DELETE": true, "OPTIONS": true, "PATCH": true,
}

// IsHTTPSMethod reports whether token (the first whitespace-delimited token
// of a request head) is one of the recognized HTTP methods, the classification test the
// protocol demultiplexer (C5) uses to route a connection here instead of to
// geminiparse.
func IsHTTPSMethod(token string) bool {
	return allowedMethods[token]
}

// Parse parses a full HTTP/1.1 request head (request line + headers,
// terminated by "\r\n\r\n") into a model.Request. defaultHostname is used
// when the request carries no Host header; if it is empty and the request
// has no Host header either, parsing fails with model.KindMalformedRequest
// (a bad_request status).
func Parse(buf []byte, peerAddr net.Addr, identity model.PeerIdentity, defaultHostname string) (model.Request, error) {
	head := buf
	if i := bytes.Index(buf, []byte("\r\n\r\n")); i >= 0 {
		head = buf[:i+2] // keep the trailing blank-line CRLF for the header scanner below
	}

	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return model.Request{}, model.NewError(model.KindMalformedRequest, errMalformed("empty request"))
	}

	requestLine := strings.Fields(lines[0])
	if len(requestLine) != 3 {
		return model.Request{}, model.NewError(model.KindMalformedRequest, errMalformed("bad request line"))
	}

	method, target := requestLine[0], requestLine[1]
	if !IsHTTPSMethod(method) {
		return model.Request{}, model.NewError(model.KindMalformedRequest, errMalformed("unrecognized method"))
	}

	var headers model.Headers
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers = append(headers, model.Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}

	host, hasHost := headers.Get("Host")
	if !hasHost || host == "" {
		if defaultHostname == "" {
			return model.Request{}, model.NewError(model.KindMalformedRequest, errMalformed("no Host header and no default hostname configured"))
		}
		host = defaultHostname
	}

	rawPath, query, _ := strings.Cut(target, "?")

	path, err := normalizePath(rawPath)
	if err != nil {
		return model.Request{}, err
	}

	return model.Request{
		PeerAddr:     peerAddr,
		Protocol:     model.ProtocolHTTPS,
		Path:         path,
		Host:         host,
		Query:        query,
		Headers:      headers,
		PeerIdentity: identity,
	}, nil
}

// normalizePath percent-decodes the path, then applies the shared
// pathnorm.Normalize rule.
func normalizePath(raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", model.NewError(model.KindBadPath, err)
	}
	path, err := pathnorm.Normalize(decoded)
	if err != nil {
		return "", model.NewError(model.KindBadPath, err)
	}
	return path, nil
}

type parseError string

func (e parseError) Error() string { return string(e) }

func errMalformed(msg string) error { return parseError(msg) }
