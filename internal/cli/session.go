package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"pocket-calculator/internal/engine"
)

// Push appends in to e, the way a keypad press would.
func Push(e *engine.Engine, in engine.Input) error {
	switch in := in.(type) {
	case engine.Operand:
		e.PushOperand(in.Value)
	case engine.Variable:
		e.PushVariable(in.Name)
	case engine.Operation:
		return e.PushOperation(in.Symbol)
	}
	return nil
}

// Render formats the current state as "<history>  <display>". An empty
// engine renders as "0".
func Render(ev engine.Evaluation) string {
	display := "0"
	if ev.HasResult {
		display = engine.FormatNumber(ev.Result)
	}
	if h := ev.History(); strings.TrimSpace(h) != "" {
		return h + "  " + display
	}
	return display
}

// REPL reads whitespace separated tokens line by line and prints the state
// after each line. "reset" empties the log; "quit" and "exit" stop.
type REPL struct {
	Engine *engine.Engine
	Logger *zap.Logger
	Prompt string
}

// Run processes in until EOF or quit.
func (r *REPL) Run(in io.Reader, out io.Writer) error {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, r.Prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "reset":
			r.Engine.Reset()
			fmt.Fprintln(out, "0")
			continue
		}

		for _, tok := range ParseTokens(line) {
			if err := Push(r.Engine, tok); err != nil {
				if !errors.Is(err, engine.ErrEmptyState) {
					return err
				}
				logger.Debug("rejected input", zap.String("token", tok.String()), zap.Error(err))
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}

		ev, err := r.Engine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		fmt.Fprintln(out, Render(ev))
	}
}
