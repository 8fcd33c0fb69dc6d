// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Three envelope shapes are in use:
//
//	{ "message": "...", "errors": [...] }              — form submission
//	{ "success": true, "registrations": [...] }        — listing
//	{ "success": false, "message": "...", "error": "" } — listing failure
//
// Rather than repeating header/status/encode in every handler, we
// centralise them here.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/aanand-mishra/registration-api/internal/types"
)

// Message is the envelope every form-submission response uses.
// Errors is only present for validation failures.
type Message struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// List is the success envelope of the registration listing.
type List struct {
	Success       bool                 `json:"success"`
	Registrations []types.Registration `json:"registrations"`
}

// Failure is the error envelope of the registration listing.
type Failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Text wraps a plain message.
func Text(msg string) Message {
	return Message{Message: msg}
}

// ValidationFailed wraps per-field validation messages.
func ValidationFailed(fieldErrors []string) Message {
	return Message{Message: "Validation failed", Errors: fieldErrors}
}

// Registrations wraps a successful listing.
func Registrations(regs []types.Registration) List {
	return List{Success: true, Registrations: regs}
}

// ListError wraps a failed listing.
func ListError(msg string, err error) Failure {
	return Failure{Success: false, Message: msg, Error: err.Error()}
}
