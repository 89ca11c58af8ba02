package runtime

import "math"

// Builtin is a fixed-arity numeric function callable from expressions.
type Builtin struct {
	Name  string
	Arity int
	apply func(args []float64) float64
}

// Call applies the builtin. The caller must have checked Arity first.
func (b Builtin) Call(args []float64) float64 {
	return b.apply(args)
}

var builtins = map[string]Builtin{
	"sqrt":  {Name: "sqrt", Arity: 1, apply: func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"sin":   {Name: "sin", Arity: 1, apply: func(a []float64) float64 { return math.Sin(a[0]) }},
	"cos":   {Name: "cos", Arity: 1, apply: func(a []float64) float64 { return math.Cos(a[0]) }},
	"tan":   {Name: "tan", Arity: 1, apply: func(a []float64) float64 { return math.Tan(a[0]) }},
	"abs":   {Name: "abs", Arity: 1, apply: func(a []float64) float64 { return math.Abs(a[0]) }},
	"log":   {Name: "log", Arity: 1, apply: func(a []float64) float64 { return math.Log(a[0]) }},
	"exp":   {Name: "exp", Arity: 1, apply: func(a []float64) float64 { return math.Exp(a[0]) }},
	"floor": {Name: "floor", Arity: 1, apply: func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":  {Name: "ceil", Arity: 1, apply: func(a []float64) float64 { return math.Ceil(a[0]) }},
	"pow":   {Name: "pow", Arity: 2, apply: func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"min":   {Name: "min", Arity: 2, apply: func(a []float64) float64 { return math.Min(a[0], a[1]) }},
	"max":   {Name: "max", Arity: 2, apply: func(a []float64) float64 { return math.Max(a[0], a[1]) }},
}

// LookupBuiltin finds a builtin by name.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}
