package eval

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/mdq/internal/doctree"
	"github.com/dgallion1/mdq/internal/query"
	"github.com/dgallion1/mdq/internal/render"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var builtins = &Registry{funcs: map[string]Func{
	"select": {MinArgs: 1, MaxArgs: 1, Call: builtinSelect},
	"or":     {MinArgs: 1, MaxArgs: Variadic, Call: builtinOr},
	"and":    {MinArgs: 1, MaxArgs: Variadic, Call: builtinAnd},
	"not":    {MinArgs: 1, MaxArgs: 1, Call: builtinNot},

	"contains":    {MinArgs: 1, MaxArgs: 1, Call: stringPredicate(strings.Contains)},
	"starts_with": {MinArgs: 1, MaxArgs: 1, Call: stringPredicate(strings.HasPrefix)},
	"ends_with":   {MinArgs: 1, MaxArgs: 1, Call: stringPredicate(strings.HasSuffix)},
	"test":        {MinArgs: 1, MaxArgs: 1, Call: builtinTest},

	"is_mdx":  {Call: kindPredicate(doctree.KindMdx)},
	"is_h":    {Call: kindPredicate(doctree.KindHeading)},
	"is_code": {Call: kindPredicate(doctree.KindCode)},
	"is_list": {Call: kindPredicate(doctree.KindList, doctree.KindListItem)},
	"is_text": {Call: kindPredicate(doctree.KindText)},

	"to_text":  {Call: builtinToText},
	"to_html":  {Call: builtinToHTML},
	"upcase":   {Call: stringMap(upcase)},
	"downcase": {Call: stringMap(downcase)},
	"trim":     {Call: stringMap(strings.TrimSpace)},
	"len":      {Call: builtinLen},
	"first":    {Call: builtinFirst},
	"last":     {Call: builtinLast},
}}

// builtinSelect keeps each value for which the predicate is truthy when
// evaluated with that value alone.
func builtinSelect(c *Context, call *query.Call, input []Value) ([]Value, error) {
	var out []Value
	for _, v := range input {
		res, err := c.Eval(call.Args[0], []Value{v})
		if err != nil {
			return nil, err
		}
		if Truthy(res) {
			out = append(out, v)
		}
	}
	return out, nil
}

func evalArgs(c *Context, call *query.Call, input []Value) ([][]Value, error) {
	results := make([][]Value, len(call.Args))
	for i, a := range call.Args {
		res, err := c.Eval(a, input)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func allNodes(results [][]Value) bool {
	for _, r := range results {
		if !onlyNodes(r) {
			return false
		}
	}
	return true
}

func builtinOr(c *Context, call *query.Call, input []Value) ([]Value, error) {
	results, err := evalArgs(c, call, input)
	if err != nil {
		return nil, err
	}
	if allNodes(results) {
		return union(results), nil
	}
	for _, r := range results {
		if Truthy(r) {
			return []Value{BoolValue(true)}, nil
		}
	}
	return []Value{BoolValue(false)}, nil
}

func builtinAnd(c *Context, call *query.Call, input []Value) ([]Value, error) {
	results, err := evalArgs(c, call, input)
	if err != nil {
		return nil, err
	}
	if allNodes(results) {
		return intersect(results), nil
	}
	for _, r := range results {
		if !Truthy(r) {
			return []Value{BoolValue(false)}, nil
		}
	}
	return []Value{BoolValue(true)}, nil
}

func builtinNot(c *Context, call *query.Call, input []Value) ([]Value, error) {
	res, err := c.Eval(call.Args[0], input)
	if err != nil {
		return nil, err
	}
	return []Value{BoolValue(!Truthy(res))}, nil
}

// stringArg evaluates argument i against the call's input and requires a
// single string.
func stringArg(c *Context, call *query.Call, i int, input []Value) (string, error) {
	res, err := c.Eval(call.Args[i], input)
	if err != nil {
		return "", err
	}
	if len(res) != 1 {
		return "", errorAt(call.Args[i], call.Name, ErrType, "argument %d must be a single string, got %d values", i+1, len(res))
	}
	s, ok := res[0].(StringValue)
	if !ok {
		return "", errorAt(call.Args[i], call.Name, ErrType, "argument %d must be a string, got %s", i+1, res[0].TypeName())
	}
	return string(s), nil
}

// textOf is the string a text function operates on: the rendered node or the
// string itself.
func textOf(c *Context, call *query.Call, v Value) (string, error) {
	switch v := v.(type) {
	case NodeValue:
		return c.Text(v.Node), nil
	case StringValue:
		return string(v), nil
	}
	return "", errorAt(call, call.Name, ErrType, "expected node or string input, got %s", v.TypeName())
}

func stringPredicate(match func(s, arg string) bool) func(*Context, *query.Call, []Value) ([]Value, error) {
	return func(c *Context, call *query.Call, input []Value) ([]Value, error) {
		arg, err := stringArg(c, call, 0, input)
		if err != nil {
			return nil, err
		}
		out := make([]Value, 0, len(input))
		for _, v := range input {
			s, err := textOf(c, call, v)
			if err != nil {
				return nil, err
			}
			out = append(out, BoolValue(match(s, arg)))
		}
		return out, nil
	}
}

func builtinTest(c *Context, call *query.Call, input []Value) ([]Value, error) {
	pattern, err := stringArg(c, call, 0, input)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errorAt(call.Args[0], call.Name, ErrType, "invalid regular expression: %v", err)
	}
	return stringPredicate(func(s, _ string) bool { return re.MatchString(s) })(c, call, input)
}

func kindPredicate(kinds ...doctree.Kind) func(*Context, *query.Call, []Value) ([]Value, error) {
	return func(_ *Context, _ *query.Call, input []Value) ([]Value, error) {
		out := make([]Value, len(input))
		for i, v := range input {
			nv, ok := v.(NodeValue)
			out[i] = BoolValue(ok && slices.Contains(kinds, nv.Node.Kind))
		}
		return out, nil
	}
}

func builtinToText(c *Context, _ *query.Call, input []Value) ([]Value, error) {
	out := make([]Value, len(input))
	for i, v := range input {
		out[i] = StringValue(Stringify(c.ev.renderer, v))
	}
	return out, nil
}

func builtinToHTML(c *Context, call *query.Call, input []Value) ([]Value, error) {
	out := make([]Value, 0, len(input))
	for _, v := range input {
		var (
			html string
			err  error
		)
		switch v := v.(type) {
		case NodeValue:
			html, err = c.ev.renderer.HTML(v.Node)
		case StringValue:
			html, err = render.MarkdownToHTML(string(v))
		default:
			return nil, errorAt(call, call.Name, ErrType, "expected node or string input, got %s", v.TypeName())
		}
		if err != nil {
			return nil, errorAt(call, call.Name, ErrType, "%v", err)
		}
		out = append(out, StringValue(html))
	}
	return out, nil
}

// Casers are stateful, so each call gets its own.
func upcase(s string) string   { return cases.Upper(language.Und).String(s) }
func downcase(s string) string { return cases.Lower(language.Und).String(s) }

func stringMap(fn func(string) string) func(*Context, *query.Call, []Value) ([]Value, error) {
	return func(c *Context, call *query.Call, input []Value) ([]Value, error) {
		out := make([]Value, 0, len(input))
		for _, v := range input {
			s, err := textOf(c, call, v)
			if err != nil {
				return nil, err
			}
			out = append(out, StringValue(fn(s)))
		}
		return out, nil
	}
}

func builtinLen(c *Context, call *query.Call, input []Value) ([]Value, error) {
	out := make([]Value, 0, len(input))
	for _, v := range input {
		s, err := textOf(c, call, v)
		if err != nil {
			return nil, err
		}
		out = append(out, NumberValue(utf8.RuneCountInString(s)))
	}
	return out, nil
}

func builtinFirst(_ *Context, _ *query.Call, input []Value) ([]Value, error) {
	if len(input) == 0 {
		return nil, nil
	}
	return input[:1], nil
}

func builtinLast(_ *Context, _ *query.Call, input []Value) ([]Value, error) {
	if len(input) == 0 {
		return nil, nil
	}
	return input[len(input)-1:], nil
}
