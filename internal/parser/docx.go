package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/mdq/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading styles become headings, numbered
// paragraphs become list items and tables become Raw nodes.
type DOCXParser struct{}

func (p *DOCXParser) Parse(src []byte) (*doctree.Document, error) {
	doc, err := docx.Parse(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var b doctree.Builder
	var list *doctree.Node
	flushList := func() {
		if list != nil {
			b.Add(list)
			list = nil
		}
	}

	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(it)
			if text == "" {
				continue
			}
			if depth, ok := docxListLevel(it); ok {
				if list == nil {
					list = &doctree.Node{Kind: doctree.KindList}
				}
				list.Items = append(list.Items, &doctree.Node{
					Kind:  doctree.KindListItem,
					Text:  text,
					Raw:   text,
					Level: depth,
					Index: len(list.Items),
				})
				continue
			}
			flushList()
			if level := docxHeadingLevel(it); level > 0 {
				b.Add(doctree.NewHeading(level, text, strings.Repeat("#", level)+" "+text))
			} else {
				b.Add(doctree.NewParagraph(text))
			}
		case *docx.Table:
			flushList()
			if s := docxTableText(it); s != "" {
				b.Add(doctree.NewRaw(s))
			}
		}
	}
	flushList()
	return b.Document(), nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(style, "heading"); ok {
		if level, err := strconv.Atoi(rest); err == nil && level >= 1 && level <= 6 {
			return level
		}
	}
	return 0
}

func docxListLevel(para *docx.Paragraph) (int, bool) {
	if para.Properties == nil || para.Properties.NumProperties == nil {
		return 0, false
	}
	np := para.Properties.NumProperties
	if np.Ilvl == nil {
		return 0, true
	}
	level, err := strconv.Atoi(np.Ilvl.Val)
	if err != nil {
		return 0, true
	}
	return level, true
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// docxTableText renders a table as pipe-separated rows.
func docxTableText(tbl *docx.Table) string {
	var rows []string
	for _, tr := range tbl.TableRows {
		cells := make([]string, 0, len(tr.TableCells))
		for _, tc := range tr.TableCells {
			var parts []string
			for _, p := range tc.Paragraphs {
				if t := docxParagraphText(p); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		rows = append(rows, "| "+strings.Join(cells, " | ")+" |")
	}
	return strings.Join(rows, "\n")
}
