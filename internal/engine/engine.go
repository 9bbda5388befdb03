package engine

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrEmptyState is returned when a value is needed but nothing has been
// entered yet.
var ErrEmptyState = errors.New("engine: no value entered")

// Separators shown after a description.
const (
	SeparatorNone     = ""
	SeparatorChaining = "..."
	SeparatorEquals   = " = "
)

// ReplayError reports the log entry at which a replay failed.
type ReplayError struct {
	Index int
	Input Input
	Err   error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("input %d (%s): %v", e.Index, e.Input, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// Evaluation is the state reached after replaying a log.
type Evaluation struct {
	Result    float64
	HasResult bool

	// Pending is true between a binary operator and the value that
	// resolves it.
	Pending bool

	Description    string
	HasDescription bool
	Separator      string
}

// History is the description followed by its separator, e.g. "6*5...".
func (ev Evaluation) History() string {
	return ev.Description + ev.Separator
}

type options struct {
	registry *Registry
	random   func() float64
	vars     map[string]float64
}

// Option configures an Engine or a Replay.
type Option func(*options)

// WithRegistry replaces the default operation registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithRandom sets the source used by "rand". It must return values in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(o *options) { o.random = fn }
}

// WithVariables binds variable names for Replay.
func WithVariables(vars map[string]float64) Option {
	return func(o *options) { o.vars = vars }
}

func newOptions(opts []Option) options {
	o := options{
		registry: DefaultRegistry(),
		random:   rand.Float64,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type accumulator struct {
	value       float64
	description string
}

type pendingBinary struct {
	op    Binary
	first accumulator
}

func (p pendingBinary) perform(second accumulator) accumulator {
	return accumulator{
		value:       p.op.Apply(p.first.value, second.value),
		description: p.op.Describe(p.first.description, second.description),
	}
}

// machine is the replay state. It lives only for the duration of one replay.
type machine struct {
	opts      options
	acc       *accumulator
	pending   *pendingBinary
	isPending bool
	separator string
}

func (m *machine) set(value float64, description string) {
	m.acc = &accumulator{value: value, description: description}
}

func (m *machine) resolvePending() {
	if m.pending == nil || m.acc == nil {
		return
	}
	next := m.pending.perform(*m.acc)
	m.acc = &next
	m.pending = nil
	m.isPending = false
}

func (m *machine) step(in Input) error {
	switch in := in.(type) {
	case Operand:
		m.set(in.Value, formatOperand(in.Value))
	case Variable:
		if v, ok := m.opts.vars[in.Name]; ok {
			m.set(v, in.Name)
		}
	case Operation:
		op, ok := m.opts.registry.Lookup(in.Symbol)
		if !ok {
			return nil
		}
		return m.perform(op)
	}
	return nil
}

func (m *machine) perform(op Op) error {
	switch op := op.(type) {
	case Constant:
		m.set(op.Value, op.Label)
	case Unary:
		if m.acc == nil {
			return ErrEmptyState
		}
		m.set(op.Apply(m.acc.value), op.Describe(m.acc.description))
		m.isPending = false
	case Binary:
		// 6×5×4 resolves 6×5 before capturing ×4.
		m.resolvePending()
		m.separator = SeparatorChaining
		if m.acc != nil {
			m.pending = &pendingBinary{op: op, first: *m.acc}
			m.acc = nil
			m.isPending = true
		}
	case Equals:
		m.separator = SeparatorEquals
		m.isPending = false
		m.resolvePending()
	case Clear:
		m.set(0, "")
		m.pending = nil
		m.isPending = false
		m.separator = SeparatorNone
	case Random:
		if m.acc == nil {
			return ErrEmptyState
		}
		m.acc.value = m.opts.random()
	}
	return nil
}

func (m *machine) evaluation() Evaluation {
	ev := Evaluation{
		Pending:   m.isPending,
		Separator: m.separator,
	}
	if m.acc != nil {
		ev.Result = m.acc.value
		ev.HasResult = true
	}
	switch {
	case m.pending != nil:
		second := ""
		if m.acc != nil {
			second = m.acc.description
		}
		ev.Description = m.pending.op.Describe(m.pending.first.description, second)
		ev.HasDescription = true
	case m.acc != nil:
		ev.Description = m.acc.description
		ev.HasDescription = true
	}
	return ev
}

// Replay folds inputs, in order, from an empty state. Unknown symbols and
// unbound variables are skipped. A failing entry is reported as a
// *ReplayError.
func Replay(inputs []Input, opts ...Option) (Evaluation, error) {
	return replay(newOptions(opts), inputs)
}

// Trace is Replay that also returns the evaluation reached after each input.
// On failure the evaluations up to the failing input are returned with the
// error.
func Trace(inputs []Input, opts ...Option) ([]Evaluation, error) {
	m := &machine{opts: newOptions(opts)}
	steps := make([]Evaluation, 0, len(inputs))
	for i, in := range inputs {
		if err := m.step(in); err != nil {
			return steps, &ReplayError{Index: i, Input: in, Err: err}
		}
		steps = append(steps, m.evaluation())
	}
	return steps, nil
}

func replay(o options, inputs []Input) (Evaluation, error) {
	m := &machine{opts: o}
	for i, in := range inputs {
		if err := m.step(in); err != nil {
			return Evaluation{}, &ReplayError{Index: i, Input: in, Err: err}
		}
	}
	return m.evaluation(), nil
}

// Engine records user inputs and evaluates them by replaying the whole log.
// An Engine is not safe for concurrent use.
type Engine struct {
	opts   options
	inputs []Input
	vars   map[string]float64
}

// New returns an engine with an empty log.
func New(opts ...Option) *Engine {
	o := newOptions(opts)
	vars := make(map[string]float64, len(o.vars))
	for k, v := range o.vars {
		vars[k] = v
	}
	return &Engine{opts: o, vars: vars}
}

// PushOperand appends a typed number.
func (e *Engine) PushOperand(value float64) {
	e.inputs = append(e.inputs, Operand{Value: value})
}

// PushVariable appends a named operand.
func (e *Engine) PushVariable(name string) {
	e.inputs = append(e.inputs, Variable{Name: name})
}

// PushOperation appends an operation symbol. If the operation cannot be
// applied to the current state the log is left unchanged and the error
// wraps ErrEmptyState.
func (e *Engine) PushOperation(symbol string) error {
	e.inputs = append(e.inputs, Operation{Symbol: symbol})
	if _, err := e.Evaluate(); err != nil {
		e.inputs = e.inputs[:len(e.inputs)-1]
		var replayErr *ReplayError
		if errors.As(err, &replayErr) {
			err = replayErr.Err
		}
		return fmt.Errorf("operation %q: %w", symbol, err)
	}
	return nil
}

// Reset empties the log.
func (e *Engine) Reset() {
	e.inputs = nil
}

// SetVariable binds name to value for subsequent evaluations.
func (e *Engine) SetVariable(name string, value float64) {
	e.vars[name] = value
}

// Len is the number of logged inputs.
func (e *Engine) Len() int {
	return len(e.inputs)
}

// Inputs returns a copy of the log.
func (e *Engine) Inputs() []Input {
	out := make([]Input, len(e.inputs))
	copy(out, e.inputs)
	return out
}

// Evaluate replays the log.
func (e *Engine) Evaluate() (Evaluation, error) {
	o := e.opts
	o.vars = e.vars
	return replay(o, e.inputs)
}

// Result is the accumulator value, if any.
func (e *Engine) Result() (float64, bool, error) {
	ev, err := e.Evaluate()
	if err != nil {
		return 0, false, err
	}
	return ev.Result, ev.HasResult, nil
}

// Description describes the computation so far. It returns ErrEmptyState
// before anything has been entered.
func (e *Engine) Description() (string, error) {
	ev, err := e.Evaluate()
	if err != nil {
		return "", err
	}
	if !ev.HasDescription {
		return "", ErrEmptyState
	}
	return ev.Description, nil
}
