package geminiparse

import (
	"net"
	"strings"
	"testing"

	"rubyshd/internal/model"
)

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

var _ net.Addr = fakeAddr("")

func TestLooksLikeGemini(t *testing.T) {
	if !LooksLikeGemini([]byte("gemini://example.com/\r\n")) {
		t.Error("expected gemini:// to look like gemini")
	}
	if LooksLikeGemini([]byte("GET / HTTP/1.1\r\n")) {
		t.Error("expected HTTP request line to not look like gemini")
	}
}

func TestParseBasic(t *testing.T) {
	req, err := Parse("gemini://example.com/a/b", fakeAddr("1.2.3.4:1965"), model.Anonymous())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Path != "/a/b" {
		t.Errorf("Path = %q", req.Path)
	}
	if req.Host != "example.com" {
		t.Errorf("Host = %q", req.Host)
	}
	if req.Protocol != model.ProtocolGemini {
		t.Errorf("Protocol = %v", req.Protocol)
	}
}

func TestParseRejectsNonGeminiScheme(t *testing.T) {
	_, err := Parse("https://example.com/", fakeAddr("1.2.3.4:1965"), model.Anonymous())
	if err == nil {
		t.Fatal("expected error for non-gemini scheme")
	}
}

func TestParseRejectsDotDot(t *testing.T) {
	_, err := Parse("gemini://example.com/../secret", fakeAddr("1.2.3.4:1965"), model.Anonymous())
	if err == nil {
		t.Fatal("expected BadPath error")
	}
	merr, ok := model.AsError(err)
	if !ok || merr.Kind != model.KindBadPath {
		t.Fatalf("expected KindBadPath, got %v", err)
	}
}

func TestParseRejectsOversizeURL(t *testing.T) {
	long := "gemini://example.com/" + strings.Repeat("a", MaxURLBytes)
	_, err := Parse(long, fakeAddr("1.2.3.4:1965"), model.Anonymous())
	if err == nil {
		t.Fatal("expected RequestTooLarge error")
	}
	merr, ok := model.AsError(err)
	if !ok || merr.Kind != model.KindRequestTooLarge {
		t.Fatalf("expected KindRequestTooLarge, got %v", err)
	}
}

func TestParseAcceptsExactly1024Bytes(t *testing.T) {
	prefix := "gemini://example.com/"
	padding := strings.Repeat("a", MaxURLBytes-len(prefix))
	line := prefix + padding
	if len(line) != MaxURLBytes {
		t.Fatalf("test setup error: line is %d bytes", len(line))
	}
	if _, err := Parse(line, fakeAddr("1.2.3.4:1965"), model.Anonymous()); err != nil {
		t.Fatalf("unexpected error at exactly MaxURLBytes: %v", err)
	}
}
