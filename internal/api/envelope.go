package api

import (
	"encoding/json"
	"net/http"

	"tubeflow/internal/apierr"
)

// envelope is the uniform success body: a status code mirror, the payload,
// a human-readable message, and a success flag clients can branch on
// without inspecting HTTP status.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// writeError maps the error's kind onto an HTTP status and renders the
// error envelope. Unclassified errors surface as 500s.
func writeError(w http.ResponseWriter, err error) {
	writeFailure(w, apierr.StatusOf(err), err.Error())
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     []string{},
	})
}

// WriteFailure renders an error envelope; middleware outside this package
// uses it to keep error bodies uniform.
func WriteFailure(w http.ResponseWriter, status int, message string) {
	writeFailure(w, status, message)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return apierr.Validation("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return apierr.Validation("invalid request body: %v", err)
	}
	return nil
}
