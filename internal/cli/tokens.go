package cli

import (
	"math"
	"strconv"
	"strings"

	"pocket-calculator/internal/engine"
)

// ParseToken maps one keypad token to an input: numbers are operands, $name
// is a variable and anything else is an operation symbol.
func ParseToken(tok string) engine.Input {
	if name, ok := strings.CutPrefix(tok, "$"); ok && name != "" {
		return engine.Variable{Name: name}
	}
	// "nan" and "inf" are keys, not numbers.
	if v, err := strconv.ParseFloat(tok, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return engine.Operand{Value: v}
	}
	return engine.Operation{Symbol: tok}
}

// ParseTokens splits line on whitespace and parses every field.
func ParseTokens(line string) []engine.Input {
	fields := strings.Fields(line)
	out := make([]engine.Input, 0, len(fields))
	for _, f := range fields {
		out = append(out, ParseToken(f))
	}
	return out
}

// ParseBindings parses name=value pairs.
func ParseBindings(pairs []string) (map[string]float64, error) {
	vars := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, &BindingError{Pair: p}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &BindingError{Pair: p, Err: err}
		}
		vars[name] = v
	}
	return vars, nil
}

// BindingError reports a malformed name=value pair.
type BindingError struct {
	Pair string
	Err  error
}

func (e *BindingError) Error() string {
	if e.Err != nil {
		return "invalid binding " + strconv.Quote(e.Pair) + ": " + e.Err.Error()
	}
	return "invalid binding " + strconv.Quote(e.Pair) + ": want name=value"
}

func (e *BindingError) Unwrap() error { return e.Err }
