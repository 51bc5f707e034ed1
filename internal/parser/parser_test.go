package parser

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dgallion1/mdq/internal/doctree"
	"github.com/fumiama/go-docx"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"MD", FormatMarkdown},
		{"mdx", FormatMDX},
		{"text", FormatText},
		{" html ", FormatHTML},
		{"raw", FormatRaw},
		{"null", FormatNull},
		{"docx", FormatDOCX},
		{"pdf", FormatPDF},
		{"csv", FormatCSV},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		if err != nil {
			t.Fatalf("ParseFormat(%q): unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q): expected %s, got %s", tt.name, tt.want, got)
		}
	}

	if _, err := ParseFormat("rtf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFormatForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"README.md", FormatMarkdown},
		{"notes.markdown", FormatMarkdown},
		{"page.MDX", FormatMDX},
		{"index.htm", FormatHTML},
		{"log.txt", FormatText},
		{"report.docx", FormatDOCX},
	}
	for _, tt := range tests {
		got, err := FormatForFile(tt.filename)
		if err != nil {
			t.Fatalf("FormatForFile(%q): unexpected error: %v", tt.filename, err)
		}
		if got != tt.want {
			t.Errorf("FormatForFile(%q): expected %s, got %s", tt.filename, tt.want, got)
		}
	}
	if IsSupportedExtension("image.png") {
		t.Error("expected .png to be unsupported")
	}
}

func TestRawAndNullFormats(t *testing.T) {
	doc, err := Decode(FormatRaw, []byte("# not a heading"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, doc, doctree.KindRaw)
	if doc.Nodes[0].Raw != "# not a heading" {
		t.Errorf("unexpected raw %q", doc.Nodes[0].Raw)
	}

	doc, err = Decode(FormatNull, []byte("# ignored"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Nodes) != 0 {
		t.Errorf("expected null format to yield no nodes, got %d", len(doc.Nodes))
	}
}

func TestDecode_BinaryFailureDegradesToRaw(t *testing.T) {
	for _, f := range []Format{FormatDOCX, FormatPDF} {
		doc, err := Decode(f, []byte("definitely not a container"), nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", f, err)
		}
		assertKinds(t, doc, doctree.KindRaw)
		if doc.Nodes[0].Raw != "definitely not a container" {
			t.Errorf("%s: unexpected raw %q", f, doc.Nodes[0].Raw)
		}
	}
}

func TestDecode_UnknownFormat(t *testing.T) {
	if _, err := Decode(Format(99), nil, nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestCSVParser_RowsBecomeItems(t *testing.T) {
	input := "name,role\nada,engineer\ngrace,admiral\n"
	p := &CSVParser{}
	doc, err := p.Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, doc, doctree.KindList)

	items := doc.Nodes[0].Items
	if len(items) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(items))
	}
	if items[0].Text != "name: ada, role: engineer" {
		t.Errorf("unexpected row text %q", items[0].Text)
	}
	if items[1].Raw != "grace,admiral" {
		t.Errorf("unexpected row raw %q", items[1].Raw)
	}
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	p := &CSVParser{}
	doc, err := p.Parse([]byte("a,b\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(doc.Nodes))
	}
}

func TestDOCXParser_HeadingsParagraphsAndLists(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().Style("Heading1").AddText("Report")
	w.AddParagraph().AddText("Summary paragraph.")
	w.AddParagraph().Style("Heading2").AddText("Findings")
	w.AddParagraph().NumPr("1", "0").AddText("first finding")
	w.AddParagraph().NumPr("1", "1").AddText("detail")
	w.AddParagraph().AddText("Closing.")

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("write docx: %v", err)
	}

	p := &DOCXParser{}
	doc, err := p.Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, doc,
		doctree.KindHeading, doctree.KindParagraph, doctree.KindHeading, doctree.KindList, doctree.KindParagraph)

	if doc.Nodes[0].Level != 1 || doc.Nodes[0].Text != "Report" {
		t.Errorf("unexpected first heading: h%d %q", doc.Nodes[0].Level, doc.Nodes[0].Text)
	}
	if doc.Nodes[2].Level != 2 {
		t.Errorf("expected h2, got h%d", doc.Nodes[2].Level)
	}
	items := doc.Nodes[3].Items
	if len(items) != 2 || items[0].Text != "first finding" || items[1].Level != 1 {
		t.Errorf("unexpected list items: %+v", items)
	}
}
