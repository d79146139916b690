// Package markdown converts CommonMark source to either HTML (for HTTPS)
// or Gemtext (for Gemini), plus front-matter extraction.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"rubyshd/internal/model"
)

var htmlConverter = goldmark.New(
	goldmark.WithRendererOptions(
		html.WithUnsafe(), // raw HTML passthrough: content here is authored by the site owner, not untrusted input
	),
)

// ToHTML renders CommonMark source to HTML.
func ToHTML(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlConverter.Convert(source, &buf); err != nil {
		return nil, model.NewError(model.KindTemplateError, err)
	}
	return buf.Bytes(), nil
}

// ToGemtext renders CommonMark source to Gemtext, walking the parsed
// document tree the way md2gemtext.rs walks pulldown-cmark's event stream.
// Footnotes, tables, strikethrough and definition lists are unsupported,
// matching the source converter's unimplemented!() branches for those node
// kinds — goldmark simply never produces them unless their extensions are
// registered, and none are here.
func ToGemtext(source []byte) ([]byte, error) {
	doc := goldmarkParser.Parse(textReader(source))
	w := &gemtextWriter{source: source}
	if err := w.walkChildren(doc); err != nil {
		return nil, model.NewError(model.KindTemplateError, err)
	}
	return w.render(), nil
}
