package eval

import (
	"errors"
	"fmt"

	"github.com/dgallion1/mdq/internal/query"
)

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrArity           = errors.New("wrong number of arguments")
	ErrType            = errors.New("invalid argument type")
	ErrDepth           = errors.New("maximum evaluation depth exceeded")
)

// Error is a failure while evaluating an expression. It aborts the query.
type Error struct {
	Pos    query.Pos
	Where  string // function or selector being evaluated
	Err    error
	Detail string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s at %s in %s", e.Err, e.Pos, e.Where)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func errorAt(x query.Expr, where string, err error, format string, args ...any) *Error {
	return &Error{Pos: x.Position(), Where: where, Err: err, Detail: fmt.Sprintf(format, args...)}
}
