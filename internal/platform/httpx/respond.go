// Package httpx provides the JSON envelope every API route answers with.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/quinisports/quinisports/internal/shared"
)

// Error codes carried in the envelope.
const (
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeMaintenanceClosed = "MAINTENANCE_CLOSED"
	CodeValidation        = "VALIDATION_ERROR"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeUnknown           = "UNKNOWN_ERROR"
)

// Envelope is the response body of every API route.
type Envelope struct {
	IsError  bool       `json:"isError"`
	Data     any        `json:"data,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
	Warnings []Warning  `json:"warnings,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Warning reports a non-fatal side-effect failure on a successful response.
type Warning = shared.Warning

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK wraps data in a success envelope.
func OK(w http.ResponseWriter, status int, data any, warnings ...Warning) {
	JSON(w, status, Envelope{Data: data, Warnings: warnings})
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	JSON(w, status, Envelope{
		IsError: true,
		Error:   &ErrorBody{Code: code, Message: message, Fields: fields},
	})
}
