package query

import (
	"strconv"
	"strings"
)

// Expr is a parsed query expression. The variants are Selector, Call, Pipe
// and Literal; consumers switch over all four.
type Expr interface {
	Position() Pos
	String() string
	expr()
}

// SelectorKind is the node class a selector matches.
type SelectorKind int

const (
	SelectHeading SelectorKind = iota // .h, .h1 ... .h6
	SelectCode                        // .code
	SelectItems                       // .[]
	SelectList                        // .list
	SelectText                        // .text
)

// Selector matches nodes of one kind. For headings a zero Level matches
// every level.
type Selector struct {
	At    Pos
	Name  string
	Kind  SelectorKind
	Level int
}

// Call applies a named function to argument expressions.
type Call struct {
	At   Pos
	Name string
	Args []Expr
}

// Pipe feeds the output of Left into Right.
type Pipe struct {
	Left, Right Expr
}

// Literal is a constant string, float64 or bool.
type Literal struct {
	At    Pos
	Value any
}

func (*Selector) expr() {}
func (*Call) expr()     {}
func (*Pipe) expr()     {}
func (*Literal) expr()  {}

func (s *Selector) Position() Pos { return s.At }
func (c *Call) Position() Pos     { return c.At }
func (p *Pipe) Position() Pos     { return p.Left.Position() }
func (l *Literal) Position() Pos  { return l.At }

func (s *Selector) String() string { return "." + s.Name }

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

func (p *Pipe) String() string { return p.Left.String() + " | " + p.Right.String() }

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return "<invalid>"
}

var selectors = map[string]Selector{
	"h":    {Kind: SelectHeading},
	"h1":   {Kind: SelectHeading, Level: 1},
	"h2":   {Kind: SelectHeading, Level: 2},
	"h3":   {Kind: SelectHeading, Level: 3},
	"h4":   {Kind: SelectHeading, Level: 4},
	"h5":   {Kind: SelectHeading, Level: 5},
	"h6":   {Kind: SelectHeading, Level: 6},
	"code": {Kind: SelectCode},
	"[]":   {Kind: SelectItems},
	"list": {Kind: SelectList},
	"text": {Kind: SelectText},
}

// LookupSelector reports the selector for a name without its leading dot.
func LookupSelector(name string) (Selector, bool) {
	s, ok := selectors[name]
	if ok {
		s.Name = name
	}
	return s, ok
}
