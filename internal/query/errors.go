package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrSyntax is wrapped by every SyntaxError.
var ErrSyntax = errors.New("syntax error")

// Pos is a location in the query text. Offset is a byte index, Line and
// Column are 1-based and count runes.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// SyntaxError reports malformed query text. Parsing stops at the first one.
type SyntaxError struct {
	Pos     Pos
	Token   string // offending source text, empty at end of input
	Message string
	Snippet string // source line containing Pos
}

func newSyntaxError(src string, off int, tok, msg string) *SyntaxError {
	return &SyntaxError{
		Pos:     position(src, off),
		Token:   tok,
		Message: msg,
		Snippet: lineAt(src, off),
	}
}

func (e *SyntaxError) Error() string {
	near := "end of query"
	if e.Token != "" {
		near = fmt.Sprintf("%q", e.Token)
	}
	return fmt.Sprintf("syntax error at line %d, column %d near %s: %s\n%s", e.Pos.Line, e.Pos.Column, near, e.Message, e.Caret())
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Caret returns the snippet with a marker under the error column.
func (e *SyntaxError) Caret() string {
	return e.Snippet + "\n" + strings.Repeat(" ", max(e.Pos.Column-1, 0)) + "^"
}

func position(src string, off int) Pos {
	if off > len(src) {
		off = len(src)
	}
	line, col := 1, 1
	for _, r := range src[:off] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return Pos{Offset: off, Line: line, Column: col}
}

func lineAt(src string, off int) string {
	if off > len(src) {
		off = len(src)
	}
	start := strings.LastIndexByte(src[:off], '\n') + 1
	end := strings.IndexByte(src[off:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += off
	}
	line := src[start:end]
	if !utf8.ValidString(line) {
		line = strings.ToValidUTF8(line, "?")
	}
	return line
}
