package engine

import "strconv"

// Input is one entry of the engine's log: an Operand, an Operation or a
// Variable.
type Input interface {
	String() string
	input()
}

// Operand is a literal number typed by the user.
type Operand struct {
	Value float64
}

// Operation references a registry symbol.
type Operation struct {
	Symbol string
}

// Variable is a named operand resolved against the engine's bindings at
// replay time.
type Variable struct {
	Name string
}

func (o Operand) String() string   { return formatOperand(o.Value) }
func (o Operation) String() string { return o.Symbol }
func (v Variable) String() string  { return v.Name }

func (Operand) input()   {}
func (Operation) input() {}
func (Variable) input()  {}

// formatOperand renders an operand for descriptions: 9 not 9.0.
func formatOperand(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
