// Package query parses mdq query text into an expression tree.
//
// Grammar:
//
//	pipeline = term { "|" term } .
//	term     = selector | call | literal | "(" pipeline ")" .
//	call     = ident "(" [ pipeline { "," pipeline } ] ")" .
//	selector = "." ( ident | "[]" ) .
//	literal  = string | number | "true" | "false" .
//
// Pipes are left-associative and bind looser than calls.
package query

import (
	"strconv"
)

// DefaultMaxDepth bounds nesting of calls and parentheses.
const DefaultMaxDepth = 128

// Option configures Parse.
type Option func(*parser)

// WithMaxDepth sets the nesting limit. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(p *parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

type parser struct {
	src      string
	tokens   []token
	pos      int
	depth    int
	maxDepth int
}

// Parse compiles query text into an Expr. It either returns a complete tree
// or a *SyntaxError.
func Parse(src string, opts ...Option) (Expr, error) {
	p := &parser{src: src, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.lexAll(); err != nil {
		return nil, err
	}
	if p.current().typ == tokEOF {
		return nil, p.errorf(p.current(), "empty query")
	}
	e, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	if t := p.current(); t.typ != tokEOF {
		return nil, p.errorf(t, "unexpected "+t.typ.String()+" after expression")
	}
	return e, nil
}

// MustParse is Parse for queries known to be valid. It panics on error.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (p *parser) lexAll() error {
	lex := newLexer(p.src)
	for {
		tok, err := lex.next()
		if err != nil {
			return err
		}
		p.tokens = append(p.tokens, tok)
		if tok.typ == tokEOF {
			return nil
		}
	}
}

func (p *parser) current() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokEOF, off: len(p.src)}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	t := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *parser) expect(tt tokenType, msg string) (token, error) {
	t := p.current()
	if t.typ != tt {
		return t, p.errorf(t, msg)
	}
	return p.advance(), nil
}

func (p *parser) errorf(t token, msg string) *SyntaxError {
	return newSyntaxError(p.src, t.off, t.text, msg)
}

func (p *parser) enter(t token) error {
	p.depth++
	if p.depth > p.maxDepth {
		return p.errorf(t, "expression nested too deeply (limit "+strconv.Itoa(p.maxDepth)+")")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parsePipeline() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.current().typ == tokPipe {
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Pipe{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Expr, error) {
	t := p.current()
	switch t.typ {
	case tokSelector:
		p.advance()
		sel, ok := LookupSelector(t.lit)
		if !ok {
			return nil, p.errorf(t, "unknown selector")
		}
		sel.At = position(p.src, t.off)
		return &sel, nil

	case tokIdent:
		return p.parseCall()

	case tokString:
		p.advance()
		return &Literal{At: position(p.src, t.off), Value: t.lit}, nil

	case tokNumber:
		p.advance()
		f, err := strconv.ParseFloat(t.lit, 64)
		if err != nil {
			return nil, p.errorf(t, "malformed number")
		}
		return &Literal{At: position(p.src, t.off), Value: f}, nil

	case tokBool:
		p.advance()
		return &Literal{At: position(p.src, t.off), Value: t.lit == "true"}, nil

	case tokLParen:
		p.advance()
		if err := p.enter(t); err != nil {
			return nil, err
		}
		defer p.leave()
		e, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "expected ')' to close group"); err != nil {
			return nil, err
		}
		return e, nil
	}
	if t.typ == tokEOF {
		return nil, p.errorf(t, "expected expression")
	}
	return nil, p.errorf(t, "unexpected "+t.typ.String())
}

func (p *parser) parseCall() (Expr, error) {
	name := p.advance()
	if _, err := p.expect(tokLParen, "expected '(' after function name "+strconv.Quote(name.lit)); err != nil {
		return nil, err
	}
	if err := p.enter(name); err != nil {
		return nil, err
	}
	defer p.leave()

	call := &Call{At: position(p.src, name.off), Name: name.lit}
	if p.current().typ == tokRParen {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.current().typ == tokComma {
			p.advance()
			continue
		}
		if _, err := p.expect(tokRParen, "expected ',' or ')' in arguments of "+strconv.Quote(name.lit)); err != nil {
			return nil, err
		}
		return call, nil
	}
}
