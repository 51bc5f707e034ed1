package eval

import (
	"strconv"

	"github.com/dgallion1/mdq/internal/doctree"
)

// Value flows through a pipeline. It is one of NodeValue, StringValue,
// BoolValue or NumberValue.
type Value interface {
	Truthy() bool
	TypeName() string
	value()
}

// NodeValue wraps a document node.
type NodeValue struct{ Node *doctree.Node }

// StringValue is a derived string.
type StringValue string

// BoolValue is a predicate result.
type BoolValue bool

// NumberValue is a numeric result.
type NumberValue float64

func (NodeValue) value()   {}
func (StringValue) value() {}
func (BoolValue) value()   {}
func (NumberValue) value() {}

func (NodeValue) Truthy() bool     { return true }
func (s StringValue) Truthy() bool { return s != "" }
func (b BoolValue) Truthy() bool   { return bool(b) }
func (n NumberValue) Truthy() bool { return n != 0 }

func (v NodeValue) TypeName() string { return v.Node.Kind.String() + " node" }
func (StringValue) TypeName() string { return "string" }
func (BoolValue) TypeName() string   { return "bool" }
func (NumberValue) TypeName() string { return "number" }

func (n NumberValue) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Truthy reports whether a sequence counts as a match: it is non-empty and
// at least one element is truthy.
func Truthy(vs []Value) bool {
	for _, v := range vs {
		if v.Truthy() {
			return true
		}
	}
	return false
}

// FromDocument seeds a pipeline with the document's top-level nodes.
func FromDocument(doc *doctree.Document) []Value {
	out := make([]Value, len(doc.Nodes))
	for i, n := range doc.Nodes {
		out[i] = NodeValue{Node: n}
	}
	return out
}

func onlyNodes(vs []Value) bool {
	for _, v := range vs {
		if _, ok := v.(NodeValue); !ok {
			return false
		}
	}
	return true
}
