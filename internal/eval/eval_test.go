package eval

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/mdq/internal/doctree"
	"github.com/dgallion1/mdq/internal/query"
	"github.com/dgallion1/mdq/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() *doctree.Document {
	var b doctree.Builder
	b.Add(doctree.NewHeading(1, "Guide", "# Guide"))
	b.Add(doctree.NewParagraph("Intro paragraph."))
	b.Add(doctree.NewHeading(2, "Features", "## Features"))
	b.Add(&doctree.Node{Kind: doctree.KindList, Items: []*doctree.Node{
		{Kind: doctree.KindListItem, Text: "Fast", Raw: "- Fast"},
		{Kind: doctree.KindListItem, Text: "Small", Raw: "- Small"},
	}})
	b.Add(doctree.NewCode("go", "package main", "```go\npackage main\n```"))
	b.Add(doctree.NewHeading(2, "Installation", "## Installation"))
	b.Add(doctree.NewMdx("<Callout />"))
	b.Add(doctree.NewText("plain line"))
	return b.Document()
}

func run(t *testing.T, src string) []string {
	t.Helper()
	out, err := runErr(src)
	require.NoError(t, err)
	return out
}

func runErr(src string) ([]string, error) {
	expr, err := query.Parse(src)
	if err != nil {
		return nil, err
	}
	ev := New()
	vals, err := ev.Eval(expr, FromDocument(sampleDoc()))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = Stringify(ev.Renderer(), v)
	}
	return out, nil
}

func TestEval_Selectors(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{".h1", []string{"# Guide"}},
		{".h2", []string{"## Features", "## Installation"}},
		{".h3", []string{}},
		{".h", []string{"# Guide", "## Features", "## Installation"}},
		{".code", []string{"```go\npackage main\n```"}},
		{".[]", []string{"- Fast", "- Small"}},
		{".list", []string{"- Fast\n- Small"}},
		{".text", []string{"plain line"}},
		{".[] | .[]", []string{"- Fast", "- Small"}},
		{".h2 | .h1", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, tt.query))
		})
	}
}

func TestEval_Select(t *testing.T) {
	assert.Equal(t, []string{"## Features"}, run(t, `.h2 | select(contains("Feature"))`))
	assert.Equal(t, []string{"<Callout />"}, run(t, `select(is_mdx())`))
	assert.Equal(t, []string{"- Small"}, run(t, `.[] | select(starts_with("- S"))`))
	assert.Equal(t, []string{"## Installation"}, run(t, `.h | select(ends_with("tion"))`))
	assert.Equal(t, []string{"# Guide", "## Features"}, run(t, `.h | select(test("^#+ (G|F)"))`))
	assert.Equal(t, []string{"## Installation"}, run(t, `.h2 | select(not(contains("Feat")))`))
}

func TestEval_OrUnionPreservesDocumentOrder(t *testing.T) {
	want := []string{"# Guide", "```go\npackage main\n```"}
	assert.Equal(t, want, run(t, "select(or(.h1, .code))"))
	assert.Equal(t, want, run(t, "select(or(.code, .h1))"))
	assert.Equal(t, want, run(t, "or(.code, .h1, .code)"))
}

func TestEval_OrWithPredicates(t *testing.T) {
	got := run(t, `.h | select(or(contains("Guide"), contains("Install")))`)
	assert.Equal(t, []string{"# Guide", "## Installation"}, got)
}

func TestEval_And(t *testing.T) {
	assert.Equal(t, []string{"## Features"}, run(t, `and(.h, .h2, select(contains("F")))`))
	assert.Equal(t, []string{"## Features"}, run(t, `.h2 | select(and(contains("#"), contains("Feat")))`))
}

func TestEval_Transforms(t *testing.T) {
	assert.Equal(t, []string{"# GUIDE"}, run(t, ".h1 | upcase()"))
	assert.Equal(t, []string{"# guide"}, run(t, ".h1 | to_text() | downcase()"))
	assert.Equal(t, []string{"7"}, run(t, ".h1 | len()"))
	assert.Equal(t, []string{"- Fast"}, run(t, ".[] | first()"))
	assert.Equal(t, []string{"- Small"}, run(t, ".[] | last()"))
	assert.Equal(t, []string{}, run(t, ".h3 | first()"))
	assert.Equal(t, []string{"<h1>Guide</h1>"}, run(t, ".h1 | to_html()"))
	assert.Equal(t, []string{"x"}, run(t, `"  x  " | trim()`))
	assert.Equal(t, []string{"true"}, run(t, `.h | first() | or(is_h(), is_code())`))
}

func TestEval_ScalarOutputs(t *testing.T) {
	assert.Equal(t, []string{"true", "false"}, run(t, `.h2 | contains("Feat")`))
	assert.Equal(t, []string{"2.5"}, run(t, "2.5"))
	assert.Equal(t, []string{"false"}, run(t, "not(.h1)"))
}

func TestEval_Errors(t *testing.T) {
	tests := []struct {
		query string
		want  error
		msg   string
	}{
		{"nope()", ErrUnknownFunction, `"nope" is not defined`},
		{"select()", ErrArity, "expected 1, got 0"},
		{"contains()", ErrArity, "expected 1, got 0"},
		{"to_text(1)", ErrArity, "expected 0, got 1"},
		{"or()", ErrArity, "at least 1"},
		{`.h1 | to_text() | .h1`, ErrType, "selector applied to string value"},
		{".h1 | contains(1)", ErrType, "must be a string"},
		{`.h1 | test("(")`, ErrType, "invalid regular expression"},
		{".h1 | contains(.h1)", ErrType, "must be a string"},
		{"2 | upcase()", ErrType, "expected node or string input"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := runErr(tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var ee *Error
			require.ErrorAs(t, err, &ee)
			assert.Contains(t, ee.Error(), tt.msg)
		})
	}
}

func TestEval_UnknownFunctionInsideSelectAborts(t *testing.T) {
	_, err := runErr("select(missing())")
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestEval_MaxDepth(t *testing.T) {
	src := strings.Repeat("select(", 20) + ".h1" + strings.Repeat(")", 20)
	expr, err := query.Parse(src)
	require.NoError(t, err)

	_, err = New(WithMaxDepth(30)).Eval(expr, FromDocument(sampleDoc()))
	require.NoError(t, err)

	_, err = New(WithMaxDepth(10)).Eval(expr, FromDocument(sampleDoc()))
	assert.ErrorIs(t, err, ErrDepth)
}

func TestEval_CustomRegistry(t *testing.T) {
	reg := Builtins()
	reg.Register("count", Func{Call: func(_ *Context, _ *query.Call, input []Value) ([]Value, error) {
		return []Value{NumberValue(len(input))}, nil
	}})
	assert.Contains(t, reg.Names(), "count")
	_, ok := New().registry.Lookup("count")
	assert.False(t, ok, "extending a copy must not change the shared built-ins")

	ev := New(WithRegistry(reg))
	vals, err := ev.Eval(query.MustParse(".h | count()"), FromDocument(sampleDoc()))
	require.NoError(t, err)
	assert.Equal(t, []Value{NumberValue(3)}, vals)
}

func TestEval_RendererListStyle(t *testing.T) {
	ev := New(WithRenderer(render.Renderer{Style: render.ListStar}))
	vals, err := ev.Eval(query.MustParse(".[] | to_text()"), FromDocument(sampleDoc()))
	require.NoError(t, err)
	assert.Equal(t, []Value{StringValue("* Fast"), StringValue("* Small")}, vals)
}

func TestCheck(t *testing.T) {
	ev := New()
	assert.Empty(t, ev.Check(query.MustParse("select(or(.h1, .code)) | to_text()")))

	errs := ev.Check(query.MustParse("select(nope(), contains())"))
	require.Len(t, errs, 3)
	assert.True(t, errors.Is(errs[0], ErrArity))
	assert.True(t, errors.Is(errs[1], ErrUnknownFunction))
	assert.True(t, errors.Is(errs[2], ErrArity))
}
