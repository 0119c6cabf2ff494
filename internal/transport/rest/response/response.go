// Package response holds the JSON envelopes every API route answers with.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope wraps successful payloads. Warnings list collaborator failures
// (image upload, email) that did not stop the request.
type Envelope struct {
	Data     any      `json:"data,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Data(w http.ResponseWriter, status int, payload any) {
	JSON(w, status, Envelope{Data: payload})
}

func DataWithWarnings(w http.ResponseWriter, status int, payload any, warnings []string) {
	JSON(w, status, Envelope{Data: payload, Warnings: warnings})
}

// Fail writes {"error":{...}}. request_id lets a guest quote the failure
// back to the host.
func Fail(w http.ResponseWriter, status int, code, message string, meta map[string]string, requestID string) {
	JSON(w, status, ErrorBody{Error: ErrorPayload{
		Code:      code,
		Message:   message,
		Meta:      meta,
		RequestID: requestID,
	}})
}
