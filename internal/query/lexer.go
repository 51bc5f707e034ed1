package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokSelector
	tokString
	tokNumber
	tokBool
	tokPipe
	tokLParen
	tokRParen
	tokComma
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of query"
	case tokIdent:
		return "identifier"
	case tokSelector:
		return "selector"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokBool:
		return "bool"
	case tokPipe:
		return "'|'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	}
	return "unknown token"
}

type token struct {
	typ  tokenType
	lit  string // selector name without the dot, unquoted string value, ...
	text string // source text of the token
	off  int
}

type lexer struct {
	src string
	pos int // byte offset
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) nextRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	return r
}

func (l *lexer) skipSpaces() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peekRune()) {
		l.nextRune()
	}
}

func (l *lexer) emit(typ tokenType, start int, lit string) token {
	return token{typ: typ, lit: lit, text: l.src[start:l.pos], off: start}
}

func (l *lexer) fail(start int, msg string) *SyntaxError {
	end := l.pos
	if end <= start {
		_, size := utf8.DecodeRuneInString(l.src[start:])
		end = start + size
	}
	return newSyntaxError(l.src, start, l.src[start:end], msg)
}

func (l *lexer) next() (token, error) {
	l.skipSpaces()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, off: start}, nil
	}
	ch := l.nextRune()

	switch ch {
	case '|':
		return l.emit(tokPipe, start, "|"), nil
	case '(':
		return l.emit(tokLParen, start, "("), nil
	case ')':
		return l.emit(tokRParen, start, ")"), nil
	case ',':
		return l.emit(tokComma, start, ","), nil
	case '.':
		return l.selector(start)
	case '"', '\'':
		return l.str(start, ch)
	}

	if unicode.IsDigit(ch) || (ch == '-' && unicode.IsDigit(l.peekRune())) {
		l.digits()
		if l.peekRune() == '.' {
			l.nextRune()
			if !unicode.IsDigit(l.peekRune()) {
				return token{}, l.fail(start, "malformed number")
			}
			l.digits()
		}
		return l.emit(tokNumber, start, l.src[start:l.pos]), nil
	}

	if isIdentStart(ch) {
		for isIdentPart(l.peekRune()) {
			l.nextRune()
		}
		lit := l.src[start:l.pos]
		if lit == "true" || lit == "false" {
			return l.emit(tokBool, start, lit), nil
		}
		return l.emit(tokIdent, start, lit), nil
	}

	return token{}, l.fail(start, "unexpected character")
}

func (l *lexer) digits() {
	for unicode.IsDigit(l.peekRune()) {
		l.nextRune()
	}
}

// selector lexes the part after a leading dot: a name or the iterator "[]".
func (l *lexer) selector(start int) (token, error) {
	if l.peekRune() == '[' {
		l.nextRune()
		if l.nextRune() != ']' {
			return token{}, l.fail(start, "expected ']' after '.[' (indexing is not supported)")
		}
		return l.emit(tokSelector, start, "[]"), nil
	}
	if !isIdentStart(l.peekRune()) {
		return token{}, l.fail(start, "expected selector name after '.'")
	}
	for isIdentPart(l.peekRune()) {
		l.nextRune()
	}
	return l.emit(tokSelector, start, l.src[start+1:l.pos]), nil
}

func (l *lexer) str(start int, quote rune) (token, error) {
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.fail(start, "unterminated string")
		}
		r := l.nextRune()
		if r == quote {
			return l.emit(tokString, start, b.String()), nil
		}
		if r != '\\' {
			b.WriteRune(r)
			continue
		}
		if l.pos >= len(l.src) {
			return token{}, l.fail(start, "unterminated escape")
		}
		switch e := l.nextRune(); e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '"', '\'':
			b.WriteRune(e)
		default:
			return token{}, l.fail(start, "unknown escape sequence \\"+string(e))
		}
	}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}
