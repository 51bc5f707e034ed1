package parser

import (
	"bufio"
	"bytes"

	"github.com/dgallion1/mdq/internal/doctree"
)

// TextParser handles plain text: one Text node per line, blank lines
// included.
type TextParser struct{}

func (p *TextParser) Parse(src []byte) (*doctree.Document, error) {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), max(len(src)+1, 64*1024))

	var b doctree.Builder
	for scanner.Scan() {
		b.Add(doctree.NewText(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.Document(), nil
}
