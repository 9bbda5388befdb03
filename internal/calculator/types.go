package calculator

import (
	"errors"
	"math"

	"pocket-calculator/internal/engine"
)

// InputPayload is the JSON form of one log entry. Exactly one field is set.
type InputPayload struct {
	Operand   *float64 `json:"operand,omitempty"`
	Operation *string  `json:"operation,omitempty"`
	Variable  *string  `json:"variable,omitempty"`
}

var errAmbiguousInput = errors.New("each input needs exactly one of operand, operation or variable")

// ToInput converts the payload to an engine input.
func (p InputPayload) ToInput() (engine.Input, error) {
	set := 0
	for _, ok := range []bool{p.Operand != nil, p.Operation != nil, p.Variable != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, errAmbiguousInput
	}

	switch {
	case p.Operand != nil:
		return engine.Operand{Value: *p.Operand}, nil
	case p.Operation != nil:
		return engine.Operation{Symbol: *p.Operation}, nil
	default:
		return engine.Variable{Name: *p.Variable}, nil
	}
}

// NewInputPayload is the inverse of ToInput.
func NewInputPayload(in engine.Input) InputPayload {
	switch in := in.(type) {
	case engine.Operand:
		v := in.Value
		return InputPayload{Operand: &v}
	case engine.Operation:
		s := in.Symbol
		return InputPayload{Operation: &s}
	case engine.Variable:
		n := in.Name
		return InputPayload{Variable: &n}
	}
	return InputPayload{}
}

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	Inputs    []InputPayload     `json:"inputs"`
	Variables map[string]float64 `json:"variables,omitempty"`
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	Steps     []StepResult `json:"steps"`
	Final     Evaluation   `json:"final"`
	RequestID string       `json:"request_id"`
}

// StepResult is the state after one input of an evaluate request.
type StepResult struct {
	Input InputPayload `json:"input"`
	Evaluation
}

// Evaluation is the JSON view of an engine evaluation. Result is null when
// there is no value or it is not finite; Display always renders it.
type Evaluation struct {
	Result      *float64 `json:"result"`
	Display     string   `json:"display"`
	Pending     bool     `json:"pending"`
	Description string   `json:"description"`
	Separator   string   `json:"separator"`
	History     string   `json:"history"`
}

// NewEvaluation converts an engine evaluation for the wire.
func NewEvaluation(ev engine.Evaluation) Evaluation {
	out := Evaluation{
		Pending:     ev.Pending,
		Description: ev.Description,
		Separator:   ev.Separator,
		History:     ev.History(),
	}
	if ev.HasResult {
		out.Display = engine.FormatNumber(ev.Result)
		if !math.IsNaN(ev.Result) && !math.IsInf(ev.Result, 0) {
			v := ev.Result
			out.Result = &v
		}
	}
	return out
}

// SessionResponse is the snapshot returned by every session endpoint.
type SessionResponse struct {
	SessionID string         `json:"session_id"`
	Inputs    []InputPayload `json:"inputs"`
	Evaluation
}

// OperandRequest is the JSON body for POST /calculator/sessions/{id}/operand.
type OperandRequest struct {
	Value *float64 `json:"value"`
}

// OperationRequest is the JSON body for POST /calculator/sessions/{id}/operation.
type OperationRequest struct {
	Symbol string `json:"symbol"`
}

// VariableRequest is the JSON body for POST /calculator/sessions/{id}/variable.
type VariableRequest struct {
	Name string `json:"name"`
}

// BindRequest is the JSON body for PUT /calculator/sessions/{id}/variables/{name}.
type BindRequest struct {
	Value *float64 `json:"value"`
}

// OperationInfo describes one registry entry.
type OperationInfo struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
}

// OperationsResponse is the JSON response for GET /calculator/operations.
type OperationsResponse struct {
	Operations []OperationInfo `json:"operations"`
}
