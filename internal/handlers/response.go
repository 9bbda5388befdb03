package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx calculator response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

var errorCodes = map[int]string{
	http.StatusBadRequest:          "invalid_request",
	http.StatusNotFound:            "not_found",
	http.StatusConflict:            "limit_exceeded",
	http.StatusUnprocessableEntity: "empty_state",
}

// ErrorCode is the machine-readable code sent with status.
func ErrorCode(status int) string {
	if code, ok := errorCodes[status]; ok {
		return code
	}
	if status >= http.StatusInternalServerError {
		return "internal"
	}
	return "error"
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse. An empty requestID is omitted.
func WriteError(w http.ResponseWriter, status int, msg, requestID string) {
	WriteJSON(w, status, ErrorResponse{
		Error:     msg,
		Code:      ErrorCode(status),
		RequestID: requestID,
	})
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
