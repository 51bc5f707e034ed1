package parser

import (
	"bytes"
	"strings"

	"github.com/dgallion1/mdq/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser maps HTML elements onto the Markdown node kinds.
type HTMLParser struct{}

func (p *HTMLParser) Parse(src []byte) (*doctree.Document, error) {
	var b doctree.Builder
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		b.Add(doctree.NewRaw(string(src)))
		return b.Document(), nil
	}

	w := &htmlWalker{b: &b}
	if body := findBody(doc); body != nil {
		w.container(body)
	} else {
		w.container(doc)
	}
	return b.Document(), nil
}

type htmlWalker struct {
	b      *doctree.Builder
	inline []*html.Node // pending run of inline content
}

// container walks block-level children, grouping adjacent inline content.
func (w *htmlWalker) container(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isInline(c) {
			w.inline = append(w.inline, c)
			continue
		}
		w.flushInline()
		w.block(c)
	}
	w.flushInline()
}

func (w *htmlWalker) flushInline() {
	if len(w.inline) == 0 {
		return
	}
	run := w.inline
	w.inline = nil

	plain := true
	var md strings.Builder
	for _, n := range run {
		if n.Type != html.TextNode {
			plain = false
		}
		writeInline(&md, n)
	}
	s := strings.TrimSpace(md.String())
	switch {
	case s == "":
	case plain:
		w.b.Add(doctree.NewText(s))
	default:
		w.b.Add(doctree.NewParagraph(s))
	}
}

func (w *htmlWalker) block(n *html.Node) {
	if n.Type != html.ElementNode {
		return
	}
	if level := headingLevel(n.Data); level > 0 {
		w.b.Add(doctree.NewHeading(level, inlineMarkdown(n), renderHTML(n)))
		return
	}
	switch n.Data {
	case "script", "style", "head", "title", "noscript", "template":
		return
	case "html", "body", "div", "section", "article", "main", "header", "footer", "nav", "aside", "center":
		w.container(n)
	case "p":
		if s := inlineMarkdown(n); s != "" {
			w.b.Add(doctree.NewParagraph(s))
		}
	case "pre":
		lang, body := preformatted(n)
		w.b.Add(doctree.NewCode(lang, body, renderHTML(n)))
	case "ul", "ol":
		list := &doctree.Node{Kind: doctree.KindList, Raw: renderHTML(n)}
		listItems(list, n, 0)
		w.b.Add(list)
	default:
		w.b.Add(doctree.NewRaw(renderHTML(n)))
	}
}

func listItems(container *doctree.Node, list *html.Node, depth int) {
	ordered := list.Data == "ol"
	index := 0
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		var md strings.Builder
		var nested []*html.Node
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				nested = append(nested, c)
				continue
			}
			writeInline(&md, c)
		}
		container.Items = append(container.Items, &doctree.Node{
			Kind:    doctree.KindListItem,
			Text:    strings.TrimSpace(md.String()),
			Raw:     renderHTML(li),
			Level:   depth,
			Ordered: ordered,
			Index:   index,
		})
		index++
		for _, sub := range nested {
			listItems(container, sub, depth+1)
		}
	}
}

// preformatted returns the language class and verbatim text of a <pre>.
func preformatted(pre *html.Node) (lang, body string) {
	lang = languageClass(pre)
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" && lang == "" {
			lang = languageClass(c)
		}
	}
	return lang, strings.TrimSuffix(textContent(pre), "\n")
}

func languageClass(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, cls := range strings.Fields(a.Val) {
			if lang, ok := strings.CutPrefix(cls, "language-"); ok {
				return lang
			}
			if lang, ok := strings.CutPrefix(cls, "lang-"); ok {
				return lang
			}
		}
	}
	return ""
}

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "br": true,
	"cite": true, "code": true, "data": true, "del": true, "dfn": true,
	"em": true, "i": true, "img": true, "ins": true, "kbd": true, "label": true,
	"mark": true, "q": true, "s": true, "samp": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "time": true,
	"u": true, "var": true, "wbr": true,
}

func isInline(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return true
	case html.ElementNode:
		return inlineTags[n.Data]
	}
	return false
}

// inlineMarkdown converts an element's children to inline Markdown.
func inlineMarkdown(n *html.Node) string {
	var md strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeInline(&md, c)
	}
	return strings.TrimSpace(md.String())
}

func writeInline(md *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		md.WriteString(collapseSpace(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	wrap := func(mark string) {
		md.WriteString(mark)
		md.WriteString(inlineMarkdown(n))
		md.WriteString(mark)
	}
	switch n.Data {
	case "strong", "b":
		wrap("**")
	case "em", "i":
		wrap("*")
	case "del", "s":
		wrap("~~")
	case "code":
		md.WriteString("`" + textContent(n) + "`")
	case "br":
		md.WriteString("\n")
	case "a":
		md.WriteString("[" + inlineMarkdown(n) + "](" + attr(n, "href") + ")")
	case "img":
		md.WriteString("![" + attr(n, "alt") + "](" + attr(n, "src") + ")")
	case "script", "style":
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeInline(md, c)
		}
	}
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func renderHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return textContent(n)
	}
	return buf.String()
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
