package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var goldmarkParser = goldmark.DefaultParser()

func textReader(source []byte) text.Reader {
	return text.NewReader(source)
}

// gemtextLink is one deferred "=> url text" line, emitted immediately
// after the block that contained the link, mirroring md2gemtext.rs's
// pending_links queue that gets drained into the current node cluster on
// finish_node.
type gemtextLink struct {
	url  string
	text string
}

// gemtextWriter walks a goldmark AST and accumulates Gemtext lines. Each
// top-level block produces zero or more lines followed by a blank
// separator, except consecutive list items, which are not separated.
type gemtextWriter struct {
	source          []byte
	lines           []string
	lastWasListItem bool
}

func (w *gemtextWriter) render() []byte {
	return []byte(strings.Join(w.lines, "\n") + "\n")
}

func (w *gemtextWriter) emit(line string) {
	w.lines = append(w.lines, line)
}

func (w *gemtextWriter) blankLine() {
	if len(w.lines) > 0 && w.lines[len(w.lines)-1] != "" {
		w.emit("")
	}
}

func (w *gemtextWriter) walkChildren(parent ast.Node) error {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if err := w.walkBlock(n); err != nil {
			return err
		}
	}
	return nil
}

func (w *gemtextWriter) walkBlock(n ast.Node) error {
	wasListItem := w.lastWasListItem
	w.lastWasListItem = false

	switch node := n.(type) {
	case *ast.Heading:
		if wasListItem {
			w.blankLine()
		}
		level := node.Level
		if level > 3 {
			level = 3
		}
		text, links := w.inlineText(node)
		w.emit(strings.Repeat("#", level) + " " + text)
		w.emitLinks(links)
		w.blankLine()

	case *ast.Paragraph, *ast.TextBlock:
		if wasListItem {
			w.blankLine()
		}
		text, links := w.inlineText(n)
		if text != "" {
			w.emit(text)
		}
		w.emitLinks(links)
		w.blankLine()

	case *ast.Blockquote:
		if wasListItem {
			w.blankLine()
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			text, links := w.inlineText(c)
			w.emit("> " + text)
			w.emitLinks(links)
		}
		w.blankLine()

	case *ast.FencedCodeBlock:
		if wasListItem {
			w.blankLine()
		}
		w.emit("```")
		w.emitCodeLines(node)
		w.emit("```")
		w.blankLine()

	case *ast.CodeBlock:
		if wasListItem {
			w.blankLine()
		}
		w.emit("```")
		w.emitCodeLines(node)
		w.emit("```")
		w.blankLine()

	case *ast.ThematicBreak:
		if wasListItem {
			w.blankLine()
		}
		w.emit("-----")
		w.blankLine()

	case *ast.HTMLBlock:
		if wasListItem {
			w.blankLine()
		}
		w.emitCodeLines(node)
		if node.HasClosure() {
			w.emit(strings.TrimRight(string(node.ClosureLine.Value(w.source)), "\n"))
		}
		w.blankLine()

	case *ast.List:
		if wasListItem {
			w.blankLine()
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if err := w.walkListItem(c); err != nil {
				return err
			}
		}
		w.lastWasListItem = false
		w.blankLine()

	default:
		return w.walkChildren(n)
	}

	return nil
}

func (w *gemtextWriter) walkListItem(n ast.Node) error {
	text, links := w.inlineText(n)
	w.emit("* " + text)
	w.emitLinks(links)
	w.lastWasListItem = true
	return nil
}

func (w *gemtextWriter) emitLinks(links []gemtextLink) {
	for _, l := range links {
		name := l.text
		if name == "" {
			name = l.url
		}
		w.emit(fmt.Sprintf("=> %s %s", l.url, name))
	}
}

type linesNode interface {
	Lines() *text.Segments
}

func (w *gemtextWriter) emitCodeLines(block linesNode) {
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.emit(strings.TrimRight(string(seg.Value(w.source)), "\n"))
	}
}

// inlineText renders an inline subtree to plain Gemtext-inline text,
// collecting any links found (in document order) as trailing lines rather
// than inline markup, since Gemtext has no inline link syntax.
func (w *gemtextWriter) inlineText(n ast.Node) (string, []gemtextLink) {
	var buf bytes.Buffer
	var links []gemtextLink
	w.walkInline(n, &buf, &links)
	return strings.TrimSpace(buf.String()), links
}

func (w *gemtextWriter) walkInline(n ast.Node, buf *bytes.Buffer, links *[]gemtextLink) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(w.source))
			if node.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.CodeSpan:
			buf.WriteByte('`')
			w.walkInline(node, buf, links)
			buf.WriteByte('`')
		case *ast.Emphasis:
			marker := "_"
			if node.Level >= 2 {
				marker = "**"
			}
			buf.WriteString(marker)
			w.walkInline(node, buf, links)
			buf.WriteString(marker)
		case *ast.Link:
			var linkText bytes.Buffer
			w.walkInline(node, &linkText, links)
			*links = append(*links, gemtextLink{url: string(node.Destination), text: linkText.String()})
			buf.Write(linkText.Bytes())
		case *ast.AutoLink:
			url := string(node.URL(w.source))
			*links = append(*links, gemtextLink{url: url, text: url})
			buf.WriteString(url)
		case *ast.Image:
			var altText bytes.Buffer
			w.walkInline(node, &altText, links)
			label := fmt.Sprintf("[image: %s]", altText.String())
			*links = append(*links, gemtextLink{url: string(node.Destination), text: label})
			buf.WriteString(label)
		default:
			w.walkInline(c, buf, links)
		}
	}
}
