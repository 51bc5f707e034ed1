// Package render turns document nodes back into literal Markdown.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/mdq/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// ListStyle selects the bullet used for list items.
type ListStyle int

const (
	ListDash ListStyle = iota
	ListPlus
	ListStar
)

func (s ListStyle) marker() string {
	switch s {
	case ListPlus:
		return "+"
	case ListStar:
		return "*"
	}
	return "-"
}

func (s ListStyle) String() string {
	switch s {
	case ListPlus:
		return "plus"
	case ListStar:
		return "star"
	}
	return "dash"
}

// ParseListStyle maps "dash", "plus" or "star" (or the marker itself) to a
// ListStyle. The empty string is ListDash.
func ParseListStyle(name string) (ListStyle, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dash", "-":
		return ListDash, nil
	case "plus", "+":
		return ListPlus, nil
	case "star", "*":
		return ListStar, nil
	}
	return ListDash, fmt.Errorf("unknown list style %q", name)
}

// Renderer produces the canonical text of a node. The zero value renders
// list items with a dash.
type Renderer struct {
	Style ListStyle
}

// Text renders a node. Every Kind has exactly one rule.
func (r Renderer) Text(n *doctree.Node) string {
	switch n.Kind {
	case doctree.KindHeading:
		return strings.Repeat("#", n.Level) + " " + n.Text
	case doctree.KindCode:
		return "```" + n.Lang + "\n" + n.Text + "\n```"
	case doctree.KindListItem:
		return r.Style.marker() + " " + n.Text
	case doctree.KindList:
		items := make([]string, len(n.Items))
		for i, item := range n.Items {
			items[i] = r.Text(item)
		}
		return strings.Join(items, "\n")
	case doctree.KindParagraph, doctree.KindText, doctree.KindMdx, doctree.KindRaw:
		return n.Raw
	}
	panic(fmt.Sprintf("render: unhandled node kind %s", n.Kind))
}

var markdown = goldmark.New(goldmark.WithRendererOptions(html.WithUnsafe()))

// HTML renders a node's Markdown text to HTML.
func (r Renderer) HTML(n *doctree.Node) (string, error) {
	return MarkdownToHTML(r.Text(n))
}

// MarkdownToHTML converts a Markdown fragment. Embedded HTML is kept.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
