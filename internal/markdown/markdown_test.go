package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTMLBasic(t *testing.T) {
	out, err := ToHTML([]byte("# Hello\n\nWorld\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>Hello</h1>")
}

func TestToHTMLAllowsRawHTML(t *testing.T) {
	out, err := ToHTML([]byte("<p>raw</p>\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<p>raw</p>")
}

func TestToGemtextHeading(t *testing.T) {
	out, err := ToGemtext([]byte("# h1\n## h2\n### h3\n"))
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "# h1")
	assert.Contains(t, s, "## h2")
	assert.Contains(t, s, "### h3")
}

func TestToGemtextLink(t *testing.T) {
	out, err := ToGemtext([]byte("see [here](http://example.com)\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "=> http://example.com here")
}

func TestToGemtextListItem(t *testing.T) {
	out, err := ToGemtext([]byte("- one\n- two\n"))
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "* one")
	assert.Contains(t, s, "* two")
}

func TestToGemtextCodeFence(t *testing.T) {
	out, err := ToGemtext([]byte("```\nsample\n```\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "```\nsample\n```")
}

func TestToGemtextPreservesRawHTMLBlock(t *testing.T) {
	out, err := ToGemtext([]byte("before\n\n<p>raw html</p>\n\nafter\n"))
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<p>raw html</p>")
	assert.Contains(t, s, "before")
	assert.Contains(t, s, "after")
}

func TestExtractFrontMatter(t *testing.T) {
	source := []byte("---\ntitle: Hello\n---\nbody text\n")
	fm, body, err := ExtractFrontMatter(source)
	require.NoError(t, err)
	assert.Equal(t, "Hello", fm["title"])
	assert.Equal(t, "body text", strings.TrimSpace(string(body)))
}

func TestExtractFrontMatterNoDelimiter(t *testing.T) {
	source := []byte("just some content\n")
	fm, body, err := ExtractFrontMatter(source)
	require.NoError(t, err)
	assert.Nil(t, fm)
	assert.Equal(t, string(source), string(body))
}
