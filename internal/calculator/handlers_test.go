package calculator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pocket-calculator/internal/engine"
	"pocket-calculator/internal/observability"
	"pocket-calculator/internal/session"
	"pocket-calculator/internal/testutil"
)

type fixture struct {
	router http.Handler
	store  *session.Store
}

func newFixture(t *testing.T, opts ...session.Option) *fixture {
	t.Helper()
	observability.Logger = zap.NewNop()
	if err := InitMetrics(); err != nil {
		t.Fatalf("initializing calculator metrics: %v", err)
	}

	registry := engine.NewRegistry()
	opts = append(opts, session.WithEngineOptions(
		engine.WithRegistry(registry),
		engine.WithRandom(func() float64 { return 0.5 }),
	))
	store := session.NewStore(opts...)

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(store, registry, 10))
	return &fixture{router: r, store: store}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.ExecuteRequest(testutil.NewJSONRequest(method, path, body), f.router)
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/calculator/sessions", "")
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if resp.Result != nil || resp.Display != "" || len(resp.Inputs) != 0 {
		t.Fatalf("expected an empty session, got %+v", resp)
	}
	return resp.SessionID
}

func TestSessionKeypadFlow(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)
	base := "/calculator/sessions/" + id

	steps := []struct {
		path    string
		body    string
		history string
		display string
		pending bool
	}{
		{path: "/operand", body: `{"value":6}`, history: "6", display: "6"},
		{path: "/operation", body: `{"symbol":"×"}`, history: "6*...", display: "", pending: true},
		{path: "/operand", body: `{"value":5}`, history: "6*5...", display: "5", pending: true},
		{path: "/operation", body: `{"symbol":"×"}`, history: "6*5*...", display: "", pending: true},
		{path: "/operand", body: `{"value":4}`, history: "6*5*4...", display: "4", pending: true},
		{path: "/operation", body: `{"symbol":"="}`, history: "6*5*4 = ", display: "120"},
	}

	for i, step := range steps {
		w := f.do(t, http.MethodPost, base+step.path, step.body)
		testutil.CheckResponseCode(t, http.StatusOK, w.Code)

		var resp SessionResponse
		testutil.DecodeJSONBody(t, w.Body, &resp)

		if resp.History != step.history {
			t.Fatalf("step %d: expected history %q, got %q", i, step.history, resp.History)
		}
		if resp.Display != step.display {
			t.Fatalf("step %d: expected display %q, got %q", i, step.display, resp.Display)
		}
		if resp.Pending != step.pending {
			t.Fatalf("step %d: expected pending %t, got %t", i, step.pending, resp.Pending)
		}
		if len(resp.Inputs) != i+1 {
			t.Fatalf("step %d: expected %d inputs, got %d", i, i+1, len(resp.Inputs))
		}
	}

	w := f.do(t, http.MethodGet, base, "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Result == nil || *resp.Result != 120 {
		t.Fatalf("expected result 120, got %#v", resp.Result)
	}
}

func TestSessionClearAndReset(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)
	base := "/calculator/sessions/" + id

	f.do(t, http.MethodPost, base+"/operand", `{"value":3}`)
	w := f.do(t, http.MethodPost, base+"/operation", `{"symbol":"c"}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var cleared SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &cleared)
	if cleared.Result == nil || *cleared.Result != 0 || cleared.Description != "" {
		t.Fatalf("expected cleared state, got %+v", cleared)
	}
	if len(cleared.Inputs) != 2 {
		t.Fatalf("expected clear to be logged, got %d inputs", len(cleared.Inputs))
	}

	w = f.do(t, http.MethodPost, base+"/reset", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var reset SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &reset)
	if len(reset.Inputs) != 0 || reset.Result != nil {
		t.Fatalf("expected empty log after reset, got %+v", reset)
	}
}

func TestSessionVariables(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)
	base := "/calculator/sessions/" + id

	w := f.do(t, http.MethodPut, base+"/variables/x", `{"value":81}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	f.do(t, http.MethodPost, base+"/variable", `{"name":"x"}`)
	w = f.do(t, http.MethodPost, base+"/operation", `{"symbol":"√"}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Description != "√(x)" || resp.Display != "9" {
		t.Fatalf("expected √(x) = 9, got %q = %q", resp.Description, resp.Display)
	}

	// Rebinding changes the replayed value, not the log.
	w = f.do(t, http.MethodPut, base+"/variables/x", `{"value":16}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Display != "4" || len(resp.Inputs) != 2 {
		t.Fatalf("expected 4 over 2 inputs, got %q over %d", resp.Display, len(resp.Inputs))
	}
}

func TestSessionErrors(t *testing.T) {
	f := newFixture(t, session.WithMaxInputs(2))
	id := f.createSession(t)
	base := "/calculator/sessions/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "unknown session", method: http.MethodGet, path: "/calculator/sessions/nope", status: http.StatusNotFound},
		{name: "bad json", method: http.MethodPost, path: base + "/operand", body: `{"value":`, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: base + "/operand", body: `{"v":1}`, status: http.StatusBadRequest},
		{name: "missing value", method: http.MethodPost, path: base + "/operand", body: `{}`, status: http.StatusBadRequest},
		{name: "missing symbol", method: http.MethodPost, path: base + "/operation", body: `{}`, status: http.StatusBadRequest},
		{name: "missing name", method: http.MethodPost, path: base + "/variable", body: `{"name":""}`, status: http.StatusBadRequest},
		{name: "unary on empty", method: http.MethodPost, path: base + "/operation", body: `{"symbol":"√"}`, status: http.StatusUnprocessableEntity},
		{name: "random on empty", method: http.MethodPost, path: base + "/operation", body: `{"symbol":"rand"}`, status: http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			testutil.CheckError(t, f.do(t, tc.method, tc.path, tc.body), tc.status)
		})
	}

	f.do(t, http.MethodPost, base+"/operand", `{"value":1}`)
	f.do(t, http.MethodPost, base+"/operation", `{"symbol":"+"}`)
	w := f.do(t, http.MethodPost, base+"/operand", `{"value":2}`)
	testutil.CheckResponseCode(t, http.StatusConflict, w.Code)
}

func TestUnknownSymbolIsAcceptedAndIgnored(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := newFixture(t)
	observability.Logger = zap.New(core)

	id := f.createSession(t)
	base := "/calculator/sessions/" + id

	f.do(t, http.MethodPost, base+"/operand", `{"value":7}`)
	w := f.do(t, http.MethodPost, base+"/operation", `{"symbol":"%"}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.History != "7" || resp.Display != "7" {
		t.Fatalf("expected unknown symbol to be a no-op, got %+v", resp)
	}

	if logs.FilterMessage("unknown calculator symbol").Len() != 1 {
		t.Fatal("expected unknown symbol to be logged")
	}
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	w := f.do(t, http.MethodDelete, "/calculator/sessions/"+id, "")
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodDelete, "/calculator/sessions/"+id, "")
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)

	if f.store.Len() != 0 {
		t.Fatalf("expected no sessions, got %d", f.store.Len())
	}
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/calculator/evaluate",
		`{"inputs":[{"operand":9},{"operation":"√"},{"operation":"+"},{"variable":"y"},{"operation":"="}],"variables":{"y":1}}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	if len(resp.Steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(resp.Steps))
	}
	if got := resp.Steps[2].History; got != "√(9)+..." {
		t.Fatalf("expected step history %q, got %q", "√(9)+...", got)
	}
	if resp.Final.Result == nil || *resp.Final.Result != 4 {
		t.Fatalf("expected result 4, got %#v", resp.Final.Result)
	}
	if resp.Final.Description != "√(9)+y" {
		t.Fatalf("expected description %q, got %q", "√(9)+y", resp.Final.Description)
	}
}

func TestEvaluateNonFiniteResult(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/calculator/evaluate",
		`{"inputs":[{"operand":1},{"operation":"÷"},{"operand":0},{"operation":"="}]}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Final.Result != nil {
		t.Fatalf("expected null result for +Inf, got %v", *resp.Final.Result)
	}
	if resp.Final.Display != "+Inf" {
		t.Fatalf("expected display %q, got %q", "+Inf", resp.Final.Display)
	}
}

func TestEvaluateErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "bad json", body: `[`, status: http.StatusBadRequest, message: "invalid request body"},
		{name: "empty", body: `{"inputs":[]}`, status: http.StatusBadRequest, message: "no inputs provided"},
		{name: "ambiguous input", body: `{"inputs":[{"operand":1,"operation":"+"}]}`, status: http.StatusBadRequest, message: "invalid input 0"},
		{name: "blank input", body: `{"inputs":[{"operand":1},{}]}`, status: http.StatusBadRequest, message: "invalid input 1"},
		{name: "too many", body: `{"inputs":[` + strings.Repeat(`{"operand":1},`, 10) + `{"operand":1}]}`, status: http.StatusConflict, message: "input limit reached"},
		{name: "empty state", body: `{"inputs":[{"operation":"cos"}]}`, status: http.StatusUnprocessableEntity, message: "input 0 (cos): engine: no value entered"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := testutil.CheckError(t, f.do(t, http.MethodPost, "/calculator/evaluate", tc.body), tc.status)
			if body.Error != tc.message {
				t.Fatalf("expected error %q, got %q", tc.message, body.Error)
			}
		})
	}
}

func TestOperations(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/calculator/operations", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp OperationsResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	kinds := make(map[string]string, len(resp.Operations))
	for _, op := range resp.Operations {
		kinds[op.Symbol] = op.Kind
	}
	if kinds["π"] != "constant" || kinds["×"] != "binary" || kinds["rand"] != "random" {
		t.Fatalf("unexpected operations listing: %+v", resp.Operations)
	}
}

func TestSessionRandIsRedrawnOnEverySnapshot(t *testing.T) {
	observability.Logger = zap.NewNop()
	if err := InitMetrics(); err != nil {
		t.Fatalf("initializing calculator metrics: %v", err)
	}

	draws := 0
	registry := engine.NewRegistry()
	store := session.NewStore(session.WithEngineOptions(
		engine.WithRegistry(registry),
		engine.WithRandom(func() float64 {
			draws++
			return float64(draws) / 100
		}),
	))
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(store, registry, 10))
	f := &fixture{router: r, store: store}

	base := "/calculator/sessions/" + f.createSession(t)
	testutil.CheckResponseCode(t, http.StatusOK, f.do(t, http.MethodPost, base+"/operand", `{"value":3}`).Code)

	var pushed, fetched SessionResponse
	w := f.do(t, http.MethodPost, base+"/operation", `{"symbol":"rand"}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	testutil.DecodeJSONBody(t, w.Body, &pushed)

	w = f.do(t, http.MethodGet, base, "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	testutil.DecodeJSONBody(t, w.Body, &fetched)

	if pushed.Result == nil || fetched.Result == nil {
		t.Fatalf("expected results, got %+v and %+v", pushed, fetched)
	}
	if *pushed.Result == *fetched.Result {
		t.Fatalf("expected a fresh draw on GET, got %v twice", *pushed.Result)
	}
	if pushed.Description != "3" || fetched.Description != "3" {
		t.Fatalf("expected description %q to survive rand, got %q and %q", "3", pushed.Description, fetched.Description)
	}
}
