// Package eval executes query expressions against document node sequences.
package eval

import (
	"fmt"
	"slices"

	"github.com/dgallion1/mdq/internal/doctree"
	"github.com/dgallion1/mdq/internal/query"
	"github.com/dgallion1/mdq/internal/render"
)

// DefaultMaxDepth bounds nested function evaluation.
const DefaultMaxDepth = 128

// Evaluator runs expressions. It holds no per-call state and is safe for
// concurrent use.
type Evaluator struct {
	registry *Registry
	renderer render.Renderer
	maxDepth int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRegistry replaces the built-in function registry.
func WithRegistry(r *Registry) Option {
	return func(e *Evaluator) { e.registry = r }
}

// WithRenderer sets the renderer used for text predicates and to_text.
func WithRenderer(r render.Renderer) Option {
	return func(e *Evaluator) { e.renderer = r }
}

// WithMaxDepth sets the nesting limit. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// New creates an Evaluator with the built-in functions.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{registry: builtins, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Renderer returns the renderer used by the evaluator.
func (e *Evaluator) Renderer() render.Renderer { return e.renderer }

// Eval runs expr with input as its value sequence.
func (e *Evaluator) Eval(expr query.Expr, input []Value) ([]Value, error) {
	c := &Context{ev: e}
	return c.Eval(expr, input)
}

// Check reports unknown functions and arity mismatches without running the
// expression.
func (e *Evaluator) Check(expr query.Expr) []error {
	var errs []error
	var walk func(query.Expr)
	walk = func(x query.Expr) {
		switch x := x.(type) {
		case *query.Pipe:
			walk(x.Left)
			walk(x.Right)
		case *query.Call:
			if f, ok := e.registry.Lookup(x.Name); !ok {
				errs = append(errs, errorAt(x, x.Name, ErrUnknownFunction, "%q is not defined", x.Name))
			} else if !f.accepts(len(x.Args)) {
				errs = append(errs, arityError(x, f))
			}
			for _, a := range x.Args {
				walk(a)
			}
		}
	}
	walk(expr)
	return errs
}

// Context is the private state of one evaluation.
type Context struct {
	ev    *Evaluator
	depth int
}

// Eval evaluates a sub-expression.
func (c *Context) Eval(expr query.Expr, input []Value) ([]Value, error) {
	switch x := expr.(type) {
	case *query.Selector:
		return c.selector(x, input)
	case *query.Pipe:
		left, err := c.Eval(x.Left, input)
		if err != nil {
			return nil, err
		}
		return c.Eval(x.Right, left)
	case *query.Literal:
		return []Value{literal(x)}, nil
	case *query.Call:
		return c.call(x, input)
	}
	panic(fmt.Sprintf("eval: unhandled expression %T", expr))
}

// Text renders a node with the evaluator's renderer.
func (c *Context) Text(n *doctree.Node) string {
	return c.ev.renderer.Text(n)
}

func (c *Context) call(x *query.Call, input []Value) ([]Value, error) {
	f, ok := c.ev.registry.Lookup(x.Name)
	if !ok {
		return nil, errorAt(x, x.Name, ErrUnknownFunction, "%q is not defined", x.Name)
	}
	if !f.accepts(len(x.Args)) {
		return nil, arityError(x, f)
	}
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.ev.maxDepth {
		return nil, errorAt(x, x.Name, ErrDepth, "limit %d", c.ev.maxDepth)
	}
	return f.Call(c, x, input)
}

func (c *Context) selector(x *query.Selector, input []Value) ([]Value, error) {
	out := make([]Value, 0, len(input))
	for _, v := range input {
		nv, ok := v.(NodeValue)
		if !ok {
			return nil, errorAt(x, x.String(), ErrType, "selector applied to %s value", v.TypeName())
		}
		n := nv.Node
		switch x.Kind {
		case query.SelectHeading:
			if n.Kind == doctree.KindHeading && (x.Level == 0 || n.Level == x.Level) {
				out = append(out, v)
			}
		case query.SelectCode:
			if n.Kind == doctree.KindCode {
				out = append(out, v)
			}
		case query.SelectItems:
			switch n.Kind {
			case doctree.KindList:
				for _, item := range n.Items {
					out = append(out, NodeValue{Node: item})
				}
			case doctree.KindListItem:
				out = append(out, v)
			}
		case query.SelectList:
			if n.Kind == doctree.KindList {
				out = append(out, v)
			}
		case query.SelectText:
			if n.Kind == doctree.KindText {
				out = append(out, v)
			}
		default:
			panic(fmt.Sprintf("eval: unhandled selector kind %d", x.Kind))
		}
	}
	return out, nil
}

func literal(x *query.Literal) Value {
	switch v := x.Value.(type) {
	case string:
		return StringValue(v)
	case float64:
		return NumberValue(v)
	case bool:
		return BoolValue(v)
	}
	panic(fmt.Sprintf("eval: unhandled literal %T", x.Value))
}

func arityError(x *query.Call, f Func) *Error {
	want := fmt.Sprintf("%d", f.MinArgs)
	switch {
	case f.MaxArgs == Variadic:
		want = fmt.Sprintf("at least %d", f.MinArgs)
	case f.MaxArgs != f.MinArgs:
		want = fmt.Sprintf("%d to %d", f.MinArgs, f.MaxArgs)
	}
	return errorAt(x, x.Name, ErrArity, "expected %s, got %d", want, len(x.Args))
}

// union merges node sequences, dropping duplicates and restoring document
// order.
func union(seqs [][]Value) []Value {
	seen := make(map[*doctree.Node]bool)
	var out []Value
	for _, seq := range seqs {
		for _, v := range seq {
			n := v.(NodeValue).Node
			if !seen[n] {
				seen[n] = true
				out = append(out, v)
			}
		}
	}
	sortBySeq(out)
	return out
}

// intersect keeps nodes present in every sequence, in document order.
func intersect(seqs [][]Value) []Value {
	count := make(map[*doctree.Node]int)
	for _, seq := range seqs {
		seen := make(map[*doctree.Node]bool)
		for _, v := range seq {
			n := v.(NodeValue).Node
			if !seen[n] {
				seen[n] = true
				count[n]++
			}
		}
	}
	var out []Value
	for _, v := range seqs[0] {
		n := v.(NodeValue).Node
		if count[n] == len(seqs) {
			out = append(out, v)
			count[n] = 0
		}
	}
	sortBySeq(out)
	return out
}

func sortBySeq(vs []Value) {
	slices.SortStableFunc(vs, func(a, b Value) int {
		return a.(NodeValue).Node.Seq - b.(NodeValue).Node.Seq
	})
}

// Stringify is the output form of a final value: rendered text for nodes and
// the literal form for scalars.
func Stringify(r render.Renderer, v Value) string {
	switch v := v.(type) {
	case NodeValue:
		return r.Text(v.Node)
	case StringValue:
		return string(v)
	case BoolValue:
		if v {
			return "true"
		}
		return "false"
	case NumberValue:
		return v.String()
	}
	panic(fmt.Sprintf("eval: unhandled value %T", v))
}
