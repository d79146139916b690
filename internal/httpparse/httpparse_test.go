package httpparse

import (
	"net"
	"testing"

	"rubyshd/internal/model"
)

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

var _ net.Addr = fakeAddr("")

func TestParseBasicGet(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"
	req, err := Parse([]byte(raw), fakeAddr("10.0.0.1:1234"), model.Anonymous(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Path != "/" {
		t.Errorf("Path = %q, want /", req.Path)
	}
	if req.Host != "example.com" {
		t.Errorf("Host = %q, want example.com", req.Host)
	}
	if req.Protocol != model.ProtocolHTTPS {
		t.Errorf("Protocol = %v, want HTTPS", req.Protocol)
	}
}

func TestParseMissingHostUsesDefault(t *testing.T) {
	raw := "GET /page HTTP/1.1\r\n\r\n"
	req, err := Parse([]byte(raw), fakeAddr("10.0.0.1:1234"), model.Anonymous(), "ruby.sh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Host != "ruby.sh" {
		t.Errorf("Host = %q, want ruby.sh", req.Host)
	}
}

func TestParseMissingHostNoDefaultFails(t *testing.T) {
	raw := "GET /page HTTP/1.1\r\n\r\n"
	_, err := Parse([]byte(raw), fakeAddr("10.0.0.1:1234"), model.Anonymous(), "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseRejectsDotDot(t *testing.T) {
	raw := "GET /../etc/passwd HTTP/1.1\r\nHost: example.com\r\n\r\n"
	_, err := Parse([]byte(raw), fakeAddr("10.0.0.1:1234"), model.Anonymous(), "")
	if err == nil {
		t.Fatal("expected BadPath error")
	}
	merr, ok := model.AsError(err)
	if !ok || merr.Kind != model.KindBadPath {
		t.Fatalf("expected KindBadPath, got %v", err)
	}
}

func TestParseRejectsUnknownMethod(t *testing.T) {
	raw := "BREW / HTTP/1.1\r\nHost: example.com\r\n\r\n"
	_, err := Parse([]byte(raw), fakeAddr("10.0.0.1:1234"), model.Anonymous(), "")
	if err == nil {
		t.Fatal("expected error for unrecognized method")
	}
}

func TestParsePreservesHeaderOrderAndQuery(t *testing.T) {
	raw := "GET /search?q=go+gopher HTTP/1.1\r\nHost: example.com\r\nX-One: 1\r\nX-Two: 2\r\n\r\n"
	req, err := Parse([]byte(raw), fakeAddr("10.0.0.1:1234"), model.Anonymous(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Headers) != 3 {
		t.Fatalf("expected 3 headers (Host, X-One, X-Two), got %d", len(req.Headers))
	}
	if req.Headers[1].Name != "X-One" || req.Headers[2].Name != "X-Two" {
		t.Errorf("header order not preserved: %+v", req.Headers)
	}
	if req.Query != "q=go+gopher" {
		t.Errorf("Query = %q", req.Query)
	}
}
