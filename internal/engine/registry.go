package engine

import (
	"math"
	"sort"
)

// Op is a registry entry. The concrete types are Constant, Unary, Binary,
// Equals, Clear and Random.
type Op interface {
	// Kind is a short lowercase name of the entry's variant.
	Kind() string
	op()
}

// Constant replaces the accumulator with a fixed value.
type Constant struct {
	Value float64
	Label string
}

// Unary transforms the accumulator in place.
type Unary struct {
	Apply    func(float64) float64
	Describe func(string) string
}

// Binary is deferred until its second operand arrives.
type Binary struct {
	Apply    func(a, b float64) float64
	Describe func(a, b string) string
}

// Equals resolves the pending binary operation.
type Equals struct{}

// Clear resets the accumulator and any pending operation.
type Clear struct{}

// Random replaces the accumulator value with a uniform draw in [0, 1).
type Random struct{}

func (Constant) Kind() string { return "constant" }
func (Unary) Kind() string    { return "unary" }
func (Binary) Kind() string   { return "binary" }
func (Equals) Kind() string   { return "equals" }
func (Clear) Kind() string    { return "clear" }
func (Random) Kind() string   { return "random" }

func (Constant) op() {}
func (Unary) op()    {}
func (Binary) op()   {}
func (Equals) op()   {}
func (Clear) op()    {}
func (Random) op()   {}

// Registry maps button symbols to operations. It is never mutated after
// construction and is safe for concurrent lookups.
type Registry struct {
	ops map[string]Op
}

func wrap(sym string) func(string) string {
	return func(d string) string { return sym + "(" + d + ")" }
}

func infix(sym string) func(a, b string) string {
	return func(a, b string) string { return a + sym + b }
}

func add(a, b float64) float64      { return a + b }
func subtract(a, b float64) float64 { return a - b }
func multiply(a, b float64) float64 { return a * b }
func divide(a, b float64) float64   { return a / b }

// NewRegistry returns the standard scientific keypad.
//
// "ln" is a base-2 logarithm; the key label and the function disagree and the
// behaviour is kept as users know it.
func NewRegistry() *Registry {
	plus := Binary{Apply: add, Describe: infix("+")}
	minus := Binary{Apply: subtract, Describe: infix("-")}
	times := Binary{Apply: multiply, Describe: infix("*")}
	over := Binary{Apply: divide, Describe: infix("/")}

	return &Registry{ops: map[string]Op{
		"π": Constant{Value: math.Pi, Label: "π"},
		"e": Constant{Value: math.E, Label: "e"},

		"√":   Unary{Apply: math.Sqrt, Describe: wrap("√")},
		"±":   Unary{Apply: func(x float64) float64 { return -x }, Describe: wrap("±")},
		"cos": Unary{Apply: math.Cos, Describe: wrap("cos")},
		"sin": Unary{Apply: math.Sin, Describe: wrap("sin")},
		"tan": Unary{Apply: math.Tan, Describe: wrap("tan")},
		"∛":   Unary{Apply: func(x float64) float64 { return math.Pow(x, 1.0/3.0) }, Describe: wrap("∛")},
		"ln":  Unary{Apply: math.Log2, Describe: wrap("ln")},

		"+": plus,
		"＋": plus,
		"−": minus,
		"-": minus,
		"×": times,
		"*": times,
		"÷": over,
		"/": over,
		"^": Binary{Apply: math.Pow, Describe: infix("^")},

		"=":    Equals{},
		"c":    Clear{},
		"rand": Random{},
	}}
}

// Lookup returns the operation bound to symbol.
func (r *Registry) Lookup(symbol string) (Op, bool) {
	op, ok := r.ops[symbol]
	return op, ok
}

// Symbols returns every registered symbol in sorted order.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.ops))
	for s := range r.ops {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the shared standard registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
