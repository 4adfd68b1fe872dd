// Package expreval implements the small expression evaluator behind
// the raster-calculator and conditional-evaluation tools: a per-cell
// symbol table of named float64 variables evaluated against a
// once-compiled expression, wrapping github.com/expr-lang/expr rather
// than hand-rolling a recursive-descent parser — expr's dynamic
// map[string]any environment maps directly onto a mutable per-cell
// symbol table.
package expreval

import (
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/haldane-gis/geocore/internal/gcerr"
)

// SymbolTable is the mutable name -> f64 mapping an evaluator is run
// against. Tools populate raster-wide entries once (rows, columns,
// north, south, east, west, cellsizex, cellsizey, cellsize, nodata,
// minvalue, maxvalue) and per-cell entries (row, column, rowy, columnx,
// value, value0..valueN) before each Eval call. One SymbolTable per
// worker keeps the evaluator re-entrant.
type SymbolTable struct {
	values map[string]float64
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{values: make(map[string]float64)}
}

// Set assigns a named variable.
func (t *SymbolTable) Set(name string, v float64) { t.values[name] = v }

// Get returns a named variable's value and whether it was set.
func (t *SymbolTable) Get(name string) (float64, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Evaluator holds a once-compiled expression program: parse once per
// tool invocation, evaluate many times.
type Evaluator struct {
	program   *vm.Program
	source    string
	nodataVar string
}

// Compile parses source once. nodataVar names the symbol-table entry a
// tool uses for its NoData sentinel (commonly "nodata"); Compile records
// whether source mentions it so callers can implement the
// NoData-skip-unless-mentioned rule without re-scanning the
// expression per cell.
func Compile(source string, nodataVar string) (*Evaluator, error) {
	program, err := expr.Compile(source, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, gcerr.Wrap(gcerr.InvalidInput, "expreval.Compile", "invalid expression", err)
	}
	return &Evaluator{program: program, source: source, nodataVar: nodataVar}, nil
}

// MentionsNoData reports whether the compiled source text references
// the configured NoData variable name.
func (e *Evaluator) MentionsNoData() bool {
	return e.nodataVar != "" && strings.Contains(e.source, e.nodataVar)
}

// Eval runs the compiled program against table's current values plus
// the built-in math functions, returning a Numeric-kind error for NaN
// or infinite results (division by zero, out-of-domain trig) — the
// caller maps that to a NoData cell rather than aborting the run.
func (e *Evaluator) Eval(table *SymbolTable) (float64, error) {
	env := builtinFuncs()
	for k, v := range table.values {
		env[k] = v
	}
	out, err := expr.Run(e.program, env)
	if err != nil {
		return 0, gcerr.Wrap(gcerr.Numeric, "expreval.Eval", "evaluation failed", err)
	}
	v, err := toFloat(out)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, gcerr.New(gcerr.Numeric, "expreval.Eval", "result is NaN or infinite")
	}
	return v, nil
}

func toFloat(out any) (float64, error) {
	switch v := out.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, gcerr.New(gcerr.InvalidInput, "expreval.Eval", "expression did not evaluate to a number or boolean")
	}
}

func variadicOrDefault(args []float64, f func(a, b float64) float64, single func(float64) float64) float64 {
	if len(args) == 1 {
		return single(args[0])
	}
	return f(args[0], args[1])
}

// builtinFuncs returns the function set: log(base?,val), e(), pi(),
// int, ceil, floor, round(modulus?,val), abs, sign, min(...), max(...),
// and the standard trig/hyperbolic family.
func builtinFuncs() map[string]any {
	return map[string]any{
		"log": func(args ...float64) float64 {
			return variadicOrDefault(args, func(base, val float64) float64 {
				return math.Log(val) / math.Log(base)
			}, math.Log)
		},
		"e":     func() float64 { return math.E },
		"pi":    func() float64 { return math.Pi },
		"int":   func(v float64) float64 { return math.Trunc(v) },
		"ceil":  math.Ceil,
		"floor": math.Floor,
		"round": func(args ...float64) float64 {
			return variadicOrDefault(args, func(modulus, val float64) float64 {
				return math.Round(val/modulus) * modulus
			}, math.Round)
		},
		"abs": math.Abs,
		"sign": func(v float64) float64 {
			switch {
			case v > 0:
				return 1
			case v < 0:
				return -1
			default:
				return 0
			}
		},
		"min": func(args ...float64) float64 { return reduce(args, math.Min) },
		"max": func(args ...float64) float64 { return reduce(args, math.Max) },

		"sin": math.Sin, "cos": math.Cos, "tan": math.Tan,
		"asin": math.Asin, "acos": math.Acos, "atan": math.Atan,
		"sinh": math.Sinh, "cosh": math.Cosh, "tanh": math.Tanh,
		"asinh": math.Asinh, "acosh": math.Acosh, "atanh": math.Atanh,
	}
}

func reduce(args []float64, f func(a, b float64) float64) float64 {
	if len(args) == 0 {
		return 0
	}
	out := args[0]
	for _, v := range args[1:] {
		out = f(out, v)
	}
	return out
}
