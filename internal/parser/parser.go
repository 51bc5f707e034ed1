package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mdq/internal/doctree"
)

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(src []byte) (*doctree.Document, error)
}

// Format is a declared input format.
type Format int

const (
	FormatMarkdown Format = iota
	FormatText
	FormatMDX
	FormatHTML
	FormatRaw
	FormatNull
	FormatDOCX
	FormatPDF
	FormatCSV
)

var ErrUnknownFormat = errors.New("unknown input format")

var formatNames = map[Format]string{
	FormatMarkdown: "markdown",
	FormatText:     "text",
	FormatMDX:      "mdx",
	FormatHTML:     "html",
	FormatRaw:      "raw",
	FormatNull:     "null",
	FormatDOCX:     "docx",
	FormatPDF:      "pdf",
	FormatCSV:      "csv",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseFormat maps a format name to a Format. The empty string is Markdown.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "mdx":
		return FormatMDX, nil
	case "html", "htm":
		return FormatHTML, nil
	case "raw":
		return FormatRaw, nil
	case "null":
		return FormatNull, nil
	case "docx":
		return FormatDOCX, nil
	case "pdf":
		return FormatPDF, nil
	case "csv":
		return FormatCSV, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// SupportedExtensions lists file extensions with a known format.
var SupportedExtensions = map[string]Format{
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".mdx":      FormatMDX,
	".txt":      FormatText,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".docx":     FormatDOCX,
	".pdf":      FormatPDF,
	".csv":      FormatCSV,
}

// FormatForFile returns the format implied by a filename's extension.
func FormatForFile(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := SupportedExtensions[ext]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("unsupported file extension: %s", ext)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, err := FormatForFile(filename)
	return err == nil
}

type settings struct {
	pdftotext bool
}

// Option tunes the parser returned by ForFormat.
type Option func(*settings)

// WithPdftotext lets the PDF parser fall back to the pdftotext binary.
func WithPdftotext(enabled bool) Option {
	return func(s *settings) { s.pdftotext = enabled }
}

// ForFormat returns the parser for a format.
func ForFormat(f Format, opts ...Option) (Parser, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	switch f {
	case FormatMarkdown:
		return &MarkdownParser{}, nil
	case FormatMDX:
		return &MarkdownParser{MDX: true}, nil
	case FormatText:
		return &TextParser{}, nil
	case FormatHTML:
		return &HTMLParser{}, nil
	case FormatRaw:
		return rawParser{}, nil
	case FormatNull:
		return nullParser{}, nil
	case FormatDOCX:
		return &DOCXParser{}, nil
	case FormatPDF:
		return &PDFParser{FallbackPdftotext: s.pdftotext}, nil
	case FormatCSV:
		return &CSVParser{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
}

// Decode parses src as format f. Input that fails to decode degrades to a
// single Raw node and a warning, so only an unknown format is an error.
func Decode(f Format, src []byte, log *slog.Logger, opts ...Option) (*doctree.Document, error) {
	p, err := ForFormat(f, opts...)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(src)
	if err == nil {
		return doc, nil
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log.Warn("document decode failed, keeping raw input", "format", f.String(), "bytes", len(src), "error", err)
	return rawParser{}.Parse([]byte(strings.ToValidUTF8(string(src), "\uFFFD")))
}

// rawParser keeps the whole input as a single Raw node.
type rawParser struct{}

func (rawParser) Parse(src []byte) (*doctree.Document, error) {
	var b doctree.Builder
	if len(src) > 0 {
		b.Add(doctree.NewRaw(string(src)))
	}
	return b.Document(), nil
}

// nullParser ignores its input.
type nullParser struct{}

func (nullParser) Parse([]byte) (*doctree.Document, error) {
	return &doctree.Document{}, nil
}
