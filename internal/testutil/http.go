// Package testutil holds HTTP helpers shared by handler and router tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pocket-calculator/internal/handlers"
)

// NewJSONRequest builds a request with a JSON body. An empty body sends none.
func NewJSONRequest(method, target, body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(method, target, nil)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ExecuteRequest serves req on handler and returns the recorded response.
func ExecuteRequest(req *http.Request, handler http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func CheckResponseCode(t testing.TB, expected, actual int) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected status %d, got %d", expected, actual)
	}
}

func DecodeJSONBody(t testing.TB, body io.Reader, dst any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		t.Fatalf("decoding JSON response: %v", err)
	}
}

// CheckError asserts an error response with the given status and the code
// that status maps to, and returns its body.
func CheckError(t testing.TB, rr *httptest.ResponseRecorder, status int) handlers.ErrorResponse {
	t.Helper()
	CheckResponseCode(t, status, rr.Code)

	var body handlers.ErrorResponse
	DecodeJSONBody(t, rr.Body, &body)
	if body.Error == "" {
		t.Fatal("expected error message in body")
	}
	if want := handlers.ErrorCode(status); body.Code != want {
		t.Fatalf("expected code %q, got %q", want, body.Code)
	}
	return body
}
