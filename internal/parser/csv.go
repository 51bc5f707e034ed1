package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/dgallion1/mdq/internal/doctree"
)

// CSVParser handles CSV files. The data rows become the items of a single
// list, each rendered as "header: cell" pairs.
type CSVParser struct{}

func (p *CSVParser) Parse(src []byte) (*doctree.Document, error) {
	reader := csv.NewReader(bytes.NewReader(src))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var b doctree.Builder
	if len(records) < 2 {
		return b.Document(), nil
	}

	// First row is headers.
	headers := records[0]
	list := &doctree.Node{Kind: doctree.KindList, Raw: string(src)}
	for i, row := range records[1:] {
		var text strings.Builder
		for j, cell := range row {
			if j < len(headers) {
				text.WriteString(headers[j] + ": " + cell)
			} else {
				text.WriteString(cell)
			}
			if j < len(row)-1 {
				text.WriteString(", ")
			}
		}
		list.Items = append(list.Items, &doctree.Node{
			Kind:  doctree.KindListItem,
			Text:  text.String(),
			Raw:   strings.Join(row, ","),
			Index: i,
		})
	}
	b.Add(list)
	return b.Document(), nil
}
