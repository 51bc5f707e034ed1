package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/mdq/internal/doctree"
)

func parseHTML(t *testing.T, input string) *doctree.Document {
	t.Helper()
	p := &HTMLParser{}
	doc, err := p.Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}

func TestHTMLParser_HeadingAndParagraph(t *testing.T) {
	doc := parseHTML(t, "<h1>Title</h1><p>Paragraph</p>")
	assertKinds(t, doc, doctree.KindHeading, doctree.KindParagraph)

	h := doc.Nodes[0]
	if h.Level != 1 || h.Text != "Title" {
		t.Errorf("expected h1 %q, got h%d %q", "Title", h.Level, h.Text)
	}
	if doc.Nodes[1].Raw != "Paragraph" {
		t.Errorf("expected paragraph %q, got %q", "Paragraph", doc.Nodes[1].Raw)
	}
}

func TestHTMLParser_InlineMarkup(t *testing.T) {
	doc := parseHTML(t, `<p>Some <strong>bold</strong>, <em>soft</em>
	and <code>x := 1</code> with <a href="https://example.com">a link</a>.</p>`)
	assertKinds(t, doc, doctree.KindParagraph)

	want := "Some **bold**, *soft* and `x := 1` with [a link](https://example.com)."
	if doc.Nodes[0].Raw != want {
		t.Errorf("expected %q, got %q", want, doc.Nodes[0].Raw)
	}
}

func TestHTMLParser_CodeAndLists(t *testing.T) {
	input := `<html><head><title>T</title><style>p{}</style></head><body>
<div>
  <h2>Install <em>now</em></h2>
  <pre><code class="language-sh">go install ./...
mdq '.h1' README.md
</code></pre>
  <ul>
    <li>one</li>
    <li>two<ol><li>nested</li></ol></li>
  </ul>
</div>
<script>alert(1)</script>
</body></html>`
	doc := parseHTML(t, input)
	assertKinds(t, doc, doctree.KindHeading, doctree.KindCode, doctree.KindList)

	if doc.Nodes[0].Text != "Install *now*" {
		t.Errorf("unexpected heading text %q", doc.Nodes[0].Text)
	}

	code := doc.Nodes[1]
	if code.Lang != "sh" {
		t.Errorf("expected lang %q, got %q", "sh", code.Lang)
	}
	if code.Text != "go install ./...\nmdq '.h1' README.md" {
		t.Errorf("unexpected code body %q", code.Text)
	}

	items := doc.Nodes[2].Items
	if len(items) != 3 {
		t.Fatalf("expected 3 flattened items, got %d", len(items))
	}
	if items[0].Text != "one" || items[1].Text != "two" || items[2].Text != "nested" {
		t.Errorf("unexpected item texts: %q %q %q", items[0].Text, items[1].Text, items[2].Text)
	}
	if items[2].Level != 1 || !items[2].Ordered {
		t.Errorf("expected nested ordered item at depth 1, got depth %d ordered=%v", items[2].Level, items[2].Ordered)
	}
}

func TestHTMLParser_BareTextAndRawBlocks(t *testing.T) {
	doc := parseHTML(t, "loose text<hr><table><tr><td>cell</td></tr></table><span>inline <b>run</b></span>")
	assertKinds(t, doc, doctree.KindText, doctree.KindRaw, doctree.KindRaw, doctree.KindParagraph)

	if doc.Nodes[0].Raw != "loose text" {
		t.Errorf("expected %q, got %q", "loose text", doc.Nodes[0].Raw)
	}
	if doc.Nodes[1].Raw != "<hr/>" {
		t.Errorf("expected %q, got %q", "<hr/>", doc.Nodes[1].Raw)
	}
	if !strings.Contains(doc.Nodes[2].Raw, "<td>cell</td>") {
		t.Errorf("expected table markup, got %q", doc.Nodes[2].Raw)
	}
	if doc.Nodes[3].Raw != "inline **run**" {
		t.Errorf("expected %q, got %q", "inline **run**", doc.Nodes[3].Raw)
	}
}

func TestHTMLParser_EmptyInput(t *testing.T) {
	doc := parseHTML(t, "")
	if len(doc.Nodes) != 0 {
		t.Errorf("expected 0 nodes, got %d", len(doc.Nodes))
	}
}
