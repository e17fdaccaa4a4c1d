// Package httpkit holds the JSON conventions of the API surface: a
// single error envelope shape, strict request decoding, and the
// Postgres error helpers the repositories share.
package httpkit

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope is the error body every endpoint returns:
// {"error":{"code":..,"message":..,"details":{..}}}.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// DecodeJSON decodes a request body, rejecting unknown fields so typos
// in client payloads fail loudly instead of being silently dropped.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	WriteJSON(w, status, ErrorEnvelope{Error: ErrorBody{
		Code:    code,
		Message: msg,
		Details: details,
	}})
}
