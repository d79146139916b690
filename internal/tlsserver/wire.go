package tlsserver

import (
	"fmt"
	"io"
	"net"

	"rubyshd/internal/model"
)

// WriteResponse encodes resp onto conn using the wire format for protocol.
// Both protocols here are single-request-per-connection: the response is
// written and the connection closes without ever trying to stay alive.
func WriteResponse(conn net.Conn, protocol model.Protocol, resp *model.Response) error {
	if protocol == model.ProtocolGemini {
		return writeGemini(conn, resp)
	}
	return writeHTTPS(conn, resp)
}

func writeGemini(w io.Writer, resp *model.Response) error {
	code := resp.Status.GeminiCode()
	meta := resp.MediaType

	if resp.Redirect != nil {
		meta = resp.Redirect.URL
		if _, err := fmt.Fprintf(w, "%d %s\r\n", code, meta); err != nil {
			return err
		}
		return nil
	}

	if meta == "" || resp.Status != model.StatusSuccess {
		meta = errorMeta(resp.Status)
	}
	if _, err := fmt.Fprintf(w, "%d %s\r\n", code, meta); err != nil {
		return err
	}
	if resp.Status != model.StatusSuccess || len(resp.Body) == 0 {
		return nil
	}
	_, err := w.Write(resp.Body)
	return err
}

func writeHTTPS(w io.Writer, resp *model.Response) error {
	code, reason := resp.Status.HTTPCode()

	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", code, reason); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "Connection: close\r\n"); err != nil {
		return err
	}

	if resp.Redirect != nil {
		if _, err := fmt.Fprintf(w, "Location: %s\r\n\r\n", resp.Redirect.URL); err != nil {
			return err
		}
		return nil
	}

	mediaType := resp.MediaType
	if mediaType == "" {
		mediaType = "text/plain; charset=utf-8"
	}
	if _, err := fmt.Fprintf(w, "Content-Type: %s\r\n", mediaType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n", len(resp.Body)); err != nil {
		return err
	}
	if resp.CacheMaxAge != nil {
		if _, err := fmt.Fprintf(w, "Cache-Control: public, max-age=%d\r\n", *resp.CacheMaxAge); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	if len(resp.Body) == 0 {
		return nil
	}
	_, err := w.Write(resp.Body)
	return err
}

// errorMeta supplies Gemini's required human-readable <META> line for
// non-success statuses that were never rendered into a body (i.e. no
// errdoc matched).
func errorMeta(status model.Status) string {
	switch status {
	case model.StatusBadRequest:
		return "Bad request"
	case model.StatusUnauthenticated:
		return "Certificate required"
	case model.StatusNotAuthorized:
		return "Not authorized"
	case model.StatusNotFound:
		return "Not found"
	case model.StatusGone:
		return "Gone"
	default:
		return "Internal server error"
	}
}
