package eval

import (
	"maps"
	"slices"

	"github.com/dgallion1/mdq/internal/query"
)

// Variadic as MaxArgs accepts any number of arguments above MinArgs.
const Variadic = -1

// Func is a built-in function. Call receives the pipeline input and the
// unevaluated argument expressions.
type Func struct {
	MinArgs int
	MaxArgs int
	Call    func(c *Context, call *query.Call, input []Value) ([]Value, error)
}

func (f Func) accepts(n int) bool {
	return n >= f.MinArgs && (f.MaxArgs == Variadic || n <= f.MaxArgs)
}

// Registry maps function names to implementations.
type Registry struct {
	funcs map[string]Func
}

// Builtins returns a fresh registry holding every built-in function. The
// result may be extended without affecting other evaluators.
func Builtins() *Registry {
	return &Registry{funcs: maps.Clone(builtins.funcs)}
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, f Func) {
	r.funcs[name] = f
}

// Lookup finds a function by name.
func (r *Registry) Lookup(name string) (Func, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.funcs))
}
