// Package mdq runs jq-like queries over Markdown, MDX, HTML and plain text
// documents.
//
//	out, err := mdq.Run(`select(or(.h1, .code)) | to_text()`, content, nil)
//
// A query is parsed once, the document is normalized into a flat sequence of
// typed nodes, and the query is evaluated against that sequence. Matched
// nodes are rendered back to their canonical Markdown text.
package mdq

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/mdq/internal/eval"
	"github.com/dgallion1/mdq/internal/parser"
	"github.com/dgallion1/mdq/internal/query"
	"github.com/dgallion1/mdq/internal/render"
)

// ErrQuery wraps every query parse or evaluation failure. Its text prefixes
// the error message.
var ErrQuery = errors.New("Error evaluating query")

// InputFormat is the declared format of a document.
type InputFormat = parser.Format

const (
	Markdown = parser.FormatMarkdown
	Text     = parser.FormatText
	MDX      = parser.FormatMDX
	HTML     = parser.FormatHTML
	Raw      = parser.FormatRaw
	Null     = parser.FormatNull
	DOCX     = parser.FormatDOCX
	PDF      = parser.FormatPDF
	CSV      = parser.FormatCSV
)

// ListStyle is the bullet used when rendering list items.
type ListStyle = render.ListStyle

const (
	ListDash = render.ListDash
	ListPlus = render.ListPlus
	ListStar = render.ListStar
)

// Options configures a query run. A nil *Options means Markdown input with
// default settings.
type Options struct {
	InputFormat InputFormat
	ListStyle   ListStyle
	MaxDepth    int  // nesting limit for parsing and evaluation, 0 for default
	Pdftotext   bool // fall back to the pdftotext binary for PDF input
	Logger      *slog.Logger
}

func (o *Options) orDefault() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return opts
}

// ParseInputFormat maps a format name such as "markdown" or "html".
func ParseInputFormat(name string) (InputFormat, error) {
	return parser.ParseFormat(name)
}

// ParseListStyle maps "dash", "plus" or "star".
func ParseListStyle(name string) (ListStyle, error) {
	return render.ParseListStyle(name)
}

// FormatForFile infers the input format from a filename extension.
func FormatForFile(filename string) (InputFormat, error) {
	return parser.FormatForFile(filename)
}

// IsSupportedFile reports whether filename has an extension with a known
// input format.
func IsSupportedFile(filename string) bool {
	return parser.IsSupportedExtension(filename)
}

// Query is a compiled query. It is immutable and safe for concurrent use.
type Query struct {
	src  string
	expr query.Expr
}

// Compile parses a query. Only the MaxDepth option is consulted.
func Compile(src string, opts *Options) (*Query, error) {
	o := opts.orDefault()
	expr, err := query.Parse(src, query.WithMaxDepth(o.MaxDepth))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return &Query{src: src, expr: expr}, nil
}

// MustCompile is Compile for queries known to be valid.
func MustCompile(src string) *Query {
	q, err := Compile(src, nil)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *Query) String() string { return q.src }

// Run evaluates the query against content.
func (q *Query) Run(content string, opts *Options) ([]string, error) {
	return q.RunBytes([]byte(content), opts)
}

// RunBytes evaluates the query against raw document bytes. The result is
// never nil on success.
func (q *Query) RunBytes(content []byte, opts *Options) ([]string, error) {
	o := opts.orDefault()
	log := o.Logger.With("query", q.src, "format", o.InputFormat.String())

	doc, err := parser.Decode(o.InputFormat, content, log, parser.WithPdftotext(o.Pdftotext))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	log.Debug("document parsed", "nodes", doc.Len())

	renderer := render.Renderer{Style: o.ListStyle}
	ev := eval.New(eval.WithRenderer(renderer), eval.WithMaxDepth(o.MaxDepth))
	vals, err := ev.Eval(q.expr, eval.FromDocument(doc))
	if err != nil {
		log.Debug("query failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = eval.Stringify(renderer, v)
	}
	log.Debug("query evaluated", "results", len(out))
	return out, nil
}

// Run compiles and evaluates query against content in one call.
func Run(src, content string, opts *Options) ([]string, error) {
	q, err := Compile(src, opts)
	if err != nil {
		return nil, err
	}
	return q.Run(content, opts)
}

// Functions lists the names of the built-in functions.
func Functions() []string {
	return eval.Builtins().Names()
}
