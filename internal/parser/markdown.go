package parser

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/dgallion1/mdq/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown, and MDX when MDX is set, using goldmark.
type MarkdownParser struct {
	MDX bool
}

func (p *MarkdownParser) Parse(src []byte) (*doctree.Document, error) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	w := &mdWalker{src: src, mdx: p.MDX}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n)
	}
	return w.b.Document(), nil
}

type mdWalker struct {
	src  []byte
	mdx  bool
	b    doctree.Builder
	last int // end offset of the last block with source lines
}

func (w *mdWalker) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		title := strings.TrimSpace(string(node.Lines().Value(w.src)))
		raw := w.raw(n)
		if raw == "" {
			raw = strings.Repeat("#", node.Level)
		}
		w.b.Add(doctree.NewHeading(node.Level, title, raw))

	case *ast.FencedCodeBlock:
		lang := string(node.Language(w.src))
		body := strings.TrimSuffix(string(node.Lines().Value(w.src)), "\n")
		w.b.Add(doctree.NewCode(lang, body, "```"+lang+"\n"+body+"\n```"))
		w.advance(n)

	case *ast.CodeBlock:
		body := strings.TrimRight(string(node.Lines().Value(w.src)), "\n")
		w.b.Add(doctree.NewCode("", body, w.raw(n)))

	case *ast.List:
		list := &doctree.Node{Kind: doctree.KindList}
		w.items(list, node, 0)
		list.Raw = w.raw(n)
		w.b.Add(list)

	case *ast.Paragraph:
		raw := strings.TrimRight(string(node.Lines().Value(w.src)), " \t\n")
		w.advance(n)
		if w.mdx && isMdxParagraph(raw) {
			w.b.Add(doctree.NewMdx(raw))
			return
		}
		w.b.Add(doctree.NewParagraph(raw))

	case *ast.HTMLBlock:
		var buf bytes.Buffer
		buf.Write(node.Lines().Value(w.src))
		if node.HasClosure() {
			buf.Write(node.ClosureLine.Value(w.src))
		}
		raw := strings.TrimRight(buf.String(), " \t\n")
		w.advance(n)
		if w.mdx {
			w.b.Add(doctree.NewMdx(raw))
			return
		}
		w.b.Add(doctree.NewRaw(raw))

	default:
		// Block quotes, thematic breaks and anything else keep their source.
		if raw := w.raw(n); raw != "" {
			w.b.Add(doctree.NewRaw(raw))
		}
	}
}

// items appends the list's items to container, flattening nested lists.
func (w *mdWalker) items(container *doctree.Node, list *ast.List, depth int) {
	index := 0
	for c := list.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		var parts []string
		var nested []*ast.List
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch child := ic.(type) {
			case *ast.List:
				nested = append(nested, child)
			case *ast.TextBlock, *ast.Paragraph:
				parts = append(parts, strings.TrimSpace(string(child.Lines().Value(w.src))))
			default:
				if s := w.span(child); s != "" {
					parts = append(parts, strings.TrimSpace(s))
				}
			}
		}
		first := ""
		if fc := item.FirstChild(); fc != nil {
			first, _, _ = strings.Cut(w.span(fc), "\n")
		}
		container.Items = append(container.Items, &doctree.Node{
			Kind:    doctree.KindListItem,
			Text:    strings.Join(parts, "\n"),
			Raw:     first,
			Level:   depth,
			Ordered: list.IsOrdered(),
			Index:   index,
		})
		index++
		for _, sub := range nested {
			w.items(container, sub, depth+1)
		}
	}
}

// raw returns the full source lines of a block. Blocks without lines of
// their own (thematic breaks, empty headings) take the last non-blank line
// between the previous block and the next one.
func (w *mdWalker) raw(n ast.Node) string {
	if s := w.span(n); s != "" {
		w.advance(n)
		return strings.TrimRight(s, " \t\n")
	}
	next := len(w.src)
	if sib := n.NextSibling(); sib != nil {
		if start, _, ok := segmentBounds(sib); ok {
			next = lineStart(w.src, start)
		}
	}
	if w.last > next {
		return ""
	}
	gap := strings.TrimSpace(string(w.src[w.last:next]))
	if i := strings.LastIndexByte(gap, '\n'); i >= 0 {
		gap = strings.TrimSpace(gap[i+1:])
	}
	w.last = next
	return gap
}

func (w *mdWalker) advance(n ast.Node) {
	if _, stop, ok := segmentBounds(n); ok && stop > w.last {
		w.last = stop
	}
}

// span is the source text from the start of the line holding n's first
// segment to the end of the line holding its last one.
func (w *mdWalker) span(n ast.Node) string {
	start, stop, ok := segmentBounds(n)
	if !ok {
		return ""
	}
	return string(w.src[lineStart(w.src, start):lineEnd(w.src, stop)])
}

// segmentBounds finds the smallest range covering the lines of n and its
// block descendants.
func segmentBounds(n ast.Node) (start, stop int, ok bool) {
	start, stop = -1, -1
	add := func(seg text.Segment) {
		if start < 0 || seg.Start < start {
			start = seg.Start
		}
		if seg.Stop > stop {
			stop = seg.Stop
		}
	}
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		lines := c.Lines()
		for i := 0; i < lines.Len(); i++ {
			add(lines.At(i))
		}
		if h, isHTML := c.(*ast.HTMLBlock); isHTML && h.HasClosure() {
			add(h.ClosureLine)
		}
		return ast.WalkContinue, nil
	})
	return start, stop, start >= 0
}

func lineStart(src []byte, off int) int {
	return bytes.LastIndexByte(src[:off], '\n') + 1
}

func lineEnd(src []byte, off int) int {
	if off > 0 && src[off-1] == '\n' {
		return off - 1
	}
	if i := bytes.IndexByte(src[off:], '\n'); i >= 0 {
		return off + i
	}
	return len(src)
}

// isMdxParagraph reports whether a paragraph is MDX syntax rather than prose:
// a JSX element, a {expression} block or ESM import/export lines.
func isMdxParagraph(raw string) bool {
	switch {
	case strings.HasPrefix(raw, "<"):
		r := []rune(strings.TrimPrefix(strings.TrimPrefix(raw, "<"), "/"))
		return len(r) == 0 || r[0] == '>' || unicode.IsUpper(r[0])
	case strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}"):
		return true
	}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "import ") && !strings.HasPrefix(line, "export ") {
			return false
		}
	}
	return true
}
