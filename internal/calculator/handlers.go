package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pocket-calculator/internal/engine"
	"pocket-calculator/internal/handlers"
	"pocket-calculator/internal/observability"
	"pocket-calculator/internal/session"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the calculator endpoints.
type Handler struct {
	store     *session.Store
	registry  *engine.Registry
	maxInputs int
}

// NewHandler returns a Handler backed by store. maxInputs bounds stateless
// evaluate requests; zero means unbounded.
func NewHandler(store *session.Store, registry *engine.Registry, maxInputs int) *Handler {
	return &Handler{store: store, registry: registry, maxInputs: maxInputs}
}

// call carries the per-request span, logger and ids.
type call struct {
	ctx       context.Context
	span      trace.Span
	logger    *zap.Logger
	requestID string
	op        string
}

func (h *Handler) start(r *http.Request, op string, attrs ...attribute.KeyValue) *call {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	attrs = append([]attribute.KeyValue{
		attribute.String("calculator.operation", op),
		attribute.String("request.id", requestID),
	}, attrs...)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.%s", op), trace.WithAttributes(attrs...))

	return &call{ctx: ctx, span: span, logger: logger, requestID: requestID, op: op}
}

func (c *call) fail(w http.ResponseWriter, status int, msg string, err error, fields ...zap.Field) {
	observability.RecordError(c.ctx, w, c.span, c.logger, errorCounter, observability.Failure{
		Operation: c.op,
		Message:   msg,
		Err:       err,
		Status:    status,
		Fields:    fields,
	})
}

// failWith maps domain errors to HTTP statuses.
func (c *call) failWith(w http.ResponseWriter, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.fail(w, http.StatusNotFound, "session not found", err, fields...)
	case errors.Is(err, session.ErrInputLimit):
		c.fail(w, http.StatusConflict, "input limit reached", err, fields...)
	case errors.Is(err, engine.ErrEmptyState):
		c.fail(w, http.StatusUnprocessableEntity, err.Error(), err, fields...)
	default:
		c.fail(w, http.StatusInternalServerError, "internal error", err, fields...)
	}
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ---------------------------------------------------------------------------
// Handlers: registry and stateless evaluation
// ---------------------------------------------------------------------------

// Operations handles GET /calculator/operations
func (h *Handler) Operations(w http.ResponseWriter, r *http.Request) {
	symbols := h.registry.Symbols()
	resp := OperationsResponse{Operations: make([]OperationInfo, 0, len(symbols))}
	for _, s := range symbols {
		op, _ := h.registry.Lookup(s)
		resp.Operations = append(resp.Operations, OperationInfo{Symbol: s, Kind: op.Kind()})
	}
	handlers.WriteJSON(w, http.StatusOK, resp)
}

// Evaluate handles POST /calculator/evaluate. It replays a whole input log in
// one request and creates a child span for every input.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	c := h.start(r, "evaluate")
	defer c.span.End()

	var req EvaluateRequest
	if err := decode(r, &req); err != nil {
		c.fail(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if len(req.Inputs) == 0 {
		c.fail(w, http.StatusBadRequest, "no inputs provided", fmt.Errorf("inputs array is empty"))
		return
	}
	if h.maxInputs > 0 && len(req.Inputs) > h.maxInputs {
		c.failWith(w, fmt.Errorf("%d inputs exceeds limit %d: %w", len(req.Inputs), h.maxInputs, session.ErrInputLimit))
		return
	}

	inputs := make([]engine.Input, len(req.Inputs))
	for i, p := range req.Inputs {
		in, err := p.ToInput()
		if err != nil {
			c.fail(w, http.StatusBadRequest, fmt.Sprintf("invalid input %d", i), err)
			return
		}
		inputs[i] = in
	}

	c.span.SetAttributes(attribute.Int("evaluate.inputs_count", len(inputs)))

	start := time.Now()
	steps, err := engine.Trace(inputs,
		engine.WithRegistry(h.registry),
		engine.WithVariables(req.Variables),
	)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	replayHistogram.Record(c.ctx, elapsed, metric.WithAttributes(attribute.String("operation", c.op)))

	results := make([]StepResult, 0, len(steps))
	for i, ev := range steps {
		h.recordStep(c, i, inputs[i], ev, nil)
		results = append(results, StepResult{Input: req.Inputs[i], Evaluation: NewEvaluation(ev)})
	}

	if err != nil {
		var replayErr *engine.ReplayError
		if errors.As(err, &replayErr) {
			h.recordStep(c, replayErr.Index, replayErr.Input, engine.Evaluation{}, err)
		}
		c.failWith(w, err)
		return
	}

	final := steps[len(steps)-1]
	if final.HasResult && finite(final.Result) {
		resultGauge.Record(c.ctx, final.Result, metric.WithAttributes(attribute.String("operation", c.op)))
	}

	c.span.AddEvent("evaluate.complete", trace.WithAttributes(
		attribute.String("history", final.History()),
		attribute.Float64("duration_ms", elapsed),
	))
	c.span.SetStatus(codes.Ok, "")

	c.logger.Info("calculator evaluation completed",
		zap.Int("inputs", len(inputs)),
		zap.String("history", final.History()),
		zap.Float64("result", final.Result),
		zap.Bool("has_result", final.HasResult),
		zap.String("request_id", c.requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{
		Steps:     results,
		Final:     NewEvaluation(final),
		RequestID: c.requestID,
	})
}

func (h *Handler) recordStep(c *call, i int, in engine.Input, ev engine.Evaluation, err error) {
	_, span := tracer.Start(c.ctx, fmt.Sprintf("calculator.evaluate.step.%d", i),
		trace.WithAttributes(
			attribute.Int("evaluate.step.index", i),
			attribute.String("evaluate.step.input", in.String()),
		),
	)
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	if op, ok := in.(engine.Operation); ok {
		if _, known := h.registry.Lookup(op.Symbol); !known {
			unknownCounter.Add(c.ctx, 1)
			span.AddEvent("step.ignored")
		}
	}

	span.SetAttributes(
		attribute.String("evaluate.step.history", ev.History()),
		attribute.Bool("evaluate.step.pending", ev.Pending),
	)
	if ev.HasResult {
		span.SetAttributes(attribute.Float64("evaluate.step.result", ev.Result))
	}
	span.SetStatus(codes.Ok, "")
}

// ---------------------------------------------------------------------------
// Handlers: sessions
// ---------------------------------------------------------------------------

// snapshot evaluates e and renders it. The caller holds the session lock.
func (h *Handler) snapshot(c *call, id string, e *engine.Engine) (SessionResponse, error) {
	start := time.Now()
	ev, err := e.Evaluate()
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	attrs := metric.WithAttributes(attribute.String("operation", c.op))
	replayHistogram.Record(c.ctx, elapsed, attrs)
	if err != nil {
		return SessionResponse{}, err
	}

	if ev.HasResult && finite(ev.Result) {
		resultGauge.Record(c.ctx, ev.Result, attrs)
		c.span.SetAttributes(attribute.Float64("calculator.result", ev.Result))
	}
	c.span.SetAttributes(
		attribute.Int("session.inputs", e.Len()),
		attribute.String("calculator.history", ev.History()),
	)

	inputs := e.Inputs()
	payloads := make([]InputPayload, len(inputs))
	for i, in := range inputs {
		payloads[i] = NewInputPayload(in)
	}

	return SessionResponse{
		SessionID:  id,
		Inputs:     payloads,
		Evaluation: NewEvaluation(ev),
	}, nil
}

// apply runs fn against the session and answers with a fresh snapshot.
// Appending calls are subject to the store's input limit.
func (h *Handler) apply(w http.ResponseWriter, c *call, id string, appends bool, fn func(*engine.Engine) error) {
	do := h.store.Do
	if appends {
		do = h.store.Append
	}

	var snap SessionResponse
	err := do(id, func(e *engine.Engine) error {
		if err := fn(e); err != nil {
			return err
		}
		var err error
		snap, err = h.snapshot(c, id, e)
		return err
	})
	if err != nil {
		c.failWith(w, err, zap.String("session_id", id))
		return
	}

	if appends {
		inputsCounter.Add(c.ctx, 1, metric.WithAttributes(attribute.String("kind", c.op)))
	}
	c.span.SetStatus(codes.Ok, "")

	c.logger.Info("calculator session updated",
		zap.String("operation", c.op),
		zap.String("session_id", id),
		zap.Int("inputs", len(snap.Inputs)),
		zap.String("history", snap.History),
		zap.String("display", snap.Display),
		zap.String("request_id", c.requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) startSession(r *http.Request, op string) (*call, string) {
	id := chi.URLParam(r, "sessionID")
	return h.start(r, op, attribute.String("session.id", id)), id
}

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	c := h.start(r, "session.create")
	defer c.span.End()

	id := h.store.Create()
	sessionsCounter.Add(c.ctx, 1)
	c.span.SetAttributes(attribute.String("session.id", id))

	var snap SessionResponse
	err := h.store.Do(id, func(e *engine.Engine) error {
		var err error
		snap, err = h.snapshot(c, id, e)
		return err
	})
	if err != nil {
		c.failWith(w, err, zap.String("session_id", id))
		return
	}
	c.span.SetStatus(codes.Ok, "")

	c.logger.Info("calculator session created",
		zap.String("session_id", id),
		zap.String("request_id", c.requestID),
	)

	handlers.WriteJSON(w, http.StatusCreated, snap)
}

// GetSession handles GET /calculator/sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	c, id := h.startSession(r, "session.get")
	defer c.span.End()

	var snap SessionResponse
	err := h.store.Do(id, func(e *engine.Engine) error {
		var err error
		snap, err = h.snapshot(c, id, e)
		return err
	})
	if err != nil {
		c.failWith(w, err, zap.String("session_id", id))
		return
	}
	c.span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, snap)
}

// DeleteSession handles DELETE /calculator/sessions/{sessionID}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	c, id := h.startSession(r, "session.delete")
	defer c.span.End()

	if err := h.store.Delete(id); err != nil {
		c.failWith(w, err, zap.String("session_id", id))
		return
	}
	c.span.SetStatus(codes.Ok, "")

	c.logger.Info("calculator session deleted",
		zap.String("session_id", id),
		zap.String("request_id", c.requestID),
	)
	w.WriteHeader(http.StatusNoContent)
}

// PushOperand handles POST /calculator/sessions/{sessionID}/operand
func (h *Handler) PushOperand(w http.ResponseWriter, r *http.Request) {
	c, id := h.startSession(r, "operand")
	defer c.span.End()

	var req OperandRequest
	if err := decode(r, &req); err != nil {
		c.fail(w, http.StatusBadRequest, "invalid request body", err, zap.String("session_id", id))
		return
	}
	if req.Value == nil {
		c.fail(w, http.StatusBadRequest, "value is required", errors.New("missing value"), zap.String("session_id", id))
		return
	}
	c.span.SetAttributes(attribute.Float64("calculator.operand", *req.Value))

	h.apply(w, c, id, true, func(e *engine.Engine) error {
		e.PushOperand(*req.Value)
		return nil
	})
}

// PushOperation handles POST /calculator/sessions/{sessionID}/operation
//
// Every snapshot replays the log, so "rand" is drawn again on each response.
func (h *Handler) PushOperation(w http.ResponseWriter, r *http.Request) {
	c, id := h.startSession(r, "operation")
	defer c.span.End()

	var req OperationRequest
	if err := decode(r, &req); err != nil {
		c.fail(w, http.StatusBadRequest, "invalid request body", err, zap.String("session_id", id))
		return
	}
	if req.Symbol == "" {
		c.fail(w, http.StatusBadRequest, "symbol is required", errors.New("missing symbol"), zap.String("session_id", id))
		return
	}
	c.span.SetAttributes(attribute.String("calculator.symbol", req.Symbol))

	// Unknown keys are logged and replayed as no-ops.
	if _, ok := h.registry.Lookup(req.Symbol); !ok {
		unknownCounter.Add(c.ctx, 1)
		c.span.AddEvent("operation.unknown")
		c.logger.Debug("unknown calculator symbol",
			zap.String("symbol", req.Symbol),
			zap.String("session_id", id),
		)
	}

	h.apply(w, c, id, true, func(e *engine.Engine) error {
		return e.PushOperation(req.Symbol)
	})
}

// PushVariable handles POST /calculator/sessions/{sessionID}/variable
func (h *Handler) PushVariable(w http.ResponseWriter, r *http.Request) {
	c, id := h.startSession(r, "variable")
	defer c.span.End()

	var req VariableRequest
	if err := decode(r, &req); err != nil {
		c.fail(w, http.StatusBadRequest, "invalid request body", err, zap.String("session_id", id))
		return
	}
	if req.Name == "" {
		c.fail(w, http.StatusBadRequest, "name is required", errors.New("missing name"), zap.String("session_id", id))
		return
	}

	h.apply(w, c, id, true, func(e *engine.Engine) error {
		e.PushVariable(req.Name)
		return nil
	})
}

// BindVariable handles PUT /calculator/sessions/{sessionID}/variables/{name}
func (h *Handler) BindVariable(w http.ResponseWriter, r *http.Request) {
	c, id := h.startSession(r, "variable.bind")
	defer c.span.End()

	name := chi.URLParam(r, "name")

	var req BindRequest
	if err := decode(r, &req); err != nil {
		c.fail(w, http.StatusBadRequest, "invalid request body", err, zap.String("session_id", id))
		return
	}
	if req.Value == nil {
		c.fail(w, http.StatusBadRequest, "value is required", errors.New("missing value"), zap.String("session_id", id))
		return
	}
	c.span.SetAttributes(attribute.String("calculator.variable", name))

	h.apply(w, c, id, false, func(e *engine.Engine) error {
		e.SetVariable(name, *req.Value)
		return nil
	})
}

// Reset handles POST /calculator/sessions/{sessionID}/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	c, id := h.startSession(r, "reset")
	defer c.span.End()

	h.apply(w, c, id, false, func(e *engine.Engine) error {
		e.Reset()
		return nil
	})
}
