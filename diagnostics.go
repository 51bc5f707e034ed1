package mdq

import (
	"errors"

	"github.com/dgallion1/mdq/internal/eval"
	"github.com/dgallion1/mdq/internal/query"
)

// Diagnostic describes one problem found in query text.
type Diagnostic struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Token   string `json:"token"`
	Message string `json:"message"`
	Snippet string `json:"snippet,omitempty"`
}

// Diagnose reports syntax errors, unknown functions and arity mismatches in
// a query without running it. A clean query yields an empty slice.
func Diagnose(src string) []Diagnostic {
	diags := []Diagnostic{}
	expr, err := query.Parse(src)
	var se *query.SyntaxError
	if errors.As(err, &se) {
		return append(diags, Diagnostic{
			Line:    se.Pos.Line,
			Column:  se.Pos.Column,
			Token:   se.Token,
			Message: se.Message,
			Snippet: se.Caret(),
		})
	}
	if err != nil {
		return append(diags, Diagnostic{Line: 1, Column: 1, Message: err.Error()})
	}

	for _, err := range eval.New().Check(expr) {
		var ee *eval.Error
		if !errors.As(err, &ee) {
			continue
		}
		msg := ee.Err.Error()
		if ee.Detail != "" {
			msg += ": " + ee.Detail
		}
		diags = append(diags, Diagnostic{
			Line:    ee.Pos.Line,
			Column:  ee.Pos.Column,
			Token:   ee.Where,
			Message: msg,
		})
	}
	return diags
}
