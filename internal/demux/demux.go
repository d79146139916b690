// Package demux is the protocol demultiplexer: given the first bytes off a
// decrypted TLS stream, classify the connection as HTTPS or Gemini and hand
// off to the matching parser.
package demux

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"strings"

	"rubyshd/internal/geminiparse"
	"rubyshd/internal/httpparse"
	"rubyshd/internal/model"
)

// ReadRequestHead reads the first bytes of a connection up to its
// terminator. An HTTP/1.1 request terminates on a blank line ("\r\n\r\n");
// a Gemini request is a single line terminated by "\r\n". Since the two
// terminators overlap (the request line of an HTTP request also ends in
// "\r\n"), this can't wait to see the whole buffer before picking a mode: it
// decides HTTPS-vs-Gemini from the very first token — terminated by a space
// for an HTTP method, or by a colon for a URL scheme — and then reads to the
// matching terminator for that mode. Exceeding maxBytes before a terminator
// is seen fails with model.KindRequestTooLarge.
func ReadRequestHead(r *bufio.Reader, maxBytes int) ([]byte, error) {
	var buf bytes.Buffer
	determined := false
	httpsMode := false

	for buf.Len() < maxBytes {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, model.NewError(model.KindMalformedRequest, errors.New("connection closed before a terminator was seen"))
			}
			return nil, model.NewError(model.KindIoError, err)
		}
		buf.WriteByte(b)

		if !determined {
			switch b {
			case ' ':
				determined, httpsMode = true, true
			case ':':
				determined, httpsMode = true, false
			case '\r', '\n':
				return nil, model.NewError(model.KindMalformedRequest, errors.New("terminator seen before a method or scheme token"))
			}
			continue
		}

		if httpsMode {
			if bytes.HasSuffix(buf.Bytes(), []byte("\r\n\r\n")) {
				return buf.Bytes(), nil
			}
		} else if bytes.HasSuffix(buf.Bytes(), []byte("\r\n")) {
			return buf.Bytes(), nil
		}
	}

	return nil, model.NewError(model.KindRequestTooLarge, errors.New("no terminator before MAX_REQUEST_HEADER_SIZE"))
}

// Classify parses the buffered request head produced by ReadRequestHead into
// a model.Request, dispatching to httpparse or geminiparse: a recognized
// HTTP method token means HTTPS, a leading URL-scheme token with exactly one
// CRLF means Gemini, anything else is MalformedRequest.
func Classify(head []byte, peerAddr net.Addr, identity model.PeerIdentity, defaultHostname string) (model.Request, error) {
	if httpparse.IsHTTPSMethod(firstToken(head)) {
		return httpparse.Parse(head, peerAddr, identity, defaultHostname)
	}

	if geminiparse.LooksLikeGemini(head) && strings.Count(string(head), "\r\n") == 1 {
		line := strings.TrimSuffix(string(head), "\r\n")
		return geminiparse.Parse(line, peerAddr, identity)
	}

	return model.Request{}, model.NewError(model.KindMalformedRequest, errors.New("request is neither a recognized HTTPS method nor a Gemini URL"))
}

func firstToken(buf []byte) string {
	i := bytes.IndexAny(buf, " \t\r\n")
	if i < 0 {
		return string(buf)
	}
	return string(buf[:i])
}
