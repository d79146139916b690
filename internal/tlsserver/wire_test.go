package tlsserver

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rubyshd/internal/model"
)

func TestWriteGeminiSuccess(t *testing.T) {
	var buf bytes.Buffer
	resp := model.NewResponse("text/gemini", []byte("hello\r\n"))
	require.NoError(t, writeGemini(&buf, resp))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "20 text/gemini\r\n"), "out = %q", out)
	assert.Contains(t, out, "hello\r\n")
}

func TestWriteGeminiRedirect(t *testing.T) {
	var buf bytes.Buffer
	resp := model.NewRedirectResponse(model.RedirectPermanent, "gemini://example.com/new")
	require.NoError(t, writeGemini(&buf, resp))
	assert.Equal(t, "31 gemini://example.com/new\r\n", buf.String())
}

func TestWriteHTTPSSuccess(t *testing.T) {
	var buf bytes.Buffer
	resp := model.NewResponse("text/html; charset=utf-8", []byte("<p>hi</p>"))
	require.NoError(t, writeHTTPS(&buf, resp))
	out := buf.String()
	assert.Contains(t, out, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, out, "Content-Length: 9\r\n")
	assert.Contains(t, out, "<p>hi</p>")
}

func TestWriteHTTPSRedirectOmitsBody(t *testing.T) {
	var buf bytes.Buffer
	resp := model.NewRedirectResponse(model.RedirectTemporary, "https://example.com/new")
	require.NoError(t, writeHTTPS(&buf, resp))
	out := buf.String()
	assert.Contains(t, out, "HTTP/1.1 307 Temporary Redirect\r\n")
	assert.Contains(t, out, "Location: https://example.com/new\r\n")
	assert.NotContains(t, out, "Content-Length")
}

func TestWriteHTTPSCacheControl(t *testing.T) {
	var buf bytes.Buffer
	resp := model.NewResponse("text/html", []byte("x")).WithCacheMaxAge(3600)
	require.NoError(t, writeHTTPS(&buf, resp))
	assert.Contains(t, buf.String(), "Cache-Control: public, max-age=3600\r\n")
}
