package doctree

import "fmt"

// Kind identifies the variant of a Node. The set is closed: consumers switch
// over every Kind and panic on anything else.
type Kind int

const (
	KindHeading Kind = iota
	KindParagraph
	KindCode
	KindList
	KindListItem
	KindText
	KindMdx
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindCode:
		return "code"
	case KindList:
		return "list"
	case KindListItem:
		return "list_item"
	case KindText:
		return "text"
	case KindMdx:
		return "mdx"
	case KindRaw:
		return "raw"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Node is one element of a parsed document. Nodes are built once by a format
// adapter and never modified afterwards.
type Node struct {
	Kind Kind
	Raw  string // Literal source span
	Text string // Heading title, code body or list item text

	Level   int    // Heading level (1-6) or list item nesting depth
	Lang    string // Code block language tag
	Ordered bool   // List item belongs to an ordered list
	Index   int    // List item position within its list

	Items []*Node // List items (KindList only)

	Seq int // Document order, assigned by Builder
}

// Document is the ordered sequence of top-level nodes.
type Document struct {
	Nodes []*Node
}

// Len returns the number of nodes including list items.
func (d *Document) Len() int {
	n := 0
	for _, node := range d.Nodes {
		n++
		n += len(node.Items)
	}
	return n
}

// Builder accumulates nodes and stamps them with their document order.
type Builder struct {
	nodes []*Node
	seq   int
}

// Add appends a top-level node. A List's items are numbered after the list.
func (b *Builder) Add(n *Node) {
	n.Seq = b.seq
	b.seq++
	for _, item := range n.Items {
		item.Seq = b.seq
		b.seq++
	}
	b.nodes = append(b.nodes, n)
}

// Document returns the built document. The builder must not be reused.
func (b *Builder) Document() *Document {
	return &Document{Nodes: b.nodes}
}

// NewHeading builds a heading node.
func NewHeading(level int, title, raw string) *Node {
	return &Node{Kind: KindHeading, Level: level, Text: title, Raw: raw}
}

// NewCode builds a code block node.
func NewCode(lang, body, raw string) *Node {
	return &Node{Kind: KindCode, Lang: lang, Text: body, Raw: raw}
}

// NewParagraph builds a paragraph node.
func NewParagraph(raw string) *Node {
	return &Node{Kind: KindParagraph, Raw: raw, Text: raw}
}

// NewText builds a plain text node.
func NewText(raw string) *Node {
	return &Node{Kind: KindText, Raw: raw, Text: raw}
}

// NewMdx builds an embedded MDX node.
func NewMdx(raw string) *Node {
	return &Node{Kind: KindMdx, Raw: raw, Text: raw}
}

// NewRaw builds a fallback node for spans no adapter recognized.
func NewRaw(raw string) *Node {
	return &Node{Kind: KindRaw, Raw: raw, Text: raw}
}
