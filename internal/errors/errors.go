// Package errors provides the sentinel errors and RFC 7807 problem
// responses shared by the service and transport layers.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// Service-level sentinel errors (matched with errors.Is)
var (
	// ErrPipelineRunning rejects a collection request while a run is in a
	// non-idle phase.
	ErrPipelineRunning = errors.New("pipeline already running")

	// ErrInvalidTargetDate rejects a target date that fails strict
	// YYYY-MM-DD parsing or lies in the future.
	ErrInvalidTargetDate = errors.New("invalid target date")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewValidationError builds a 400 problem for a rejected request payload
func NewValidationError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusBadRequest,
		"/errors/validation",
		"Request Validation Failed",
		detail,
		instance,
	)
}

// NewPipelineRunningError builds the 409 problem returned when a
// collection request arrives while a run is already in flight. The
// caller attaches the current status as an extension.
func NewPipelineRunningError(instance string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusConflict,
		"/errors/pipeline-running",
		"Pipeline Already Running",
		"A collection run is already in progress; poll /status for progress.",
		instance,
	)
}

// NewInternalError builds an opaque 500 problem; internal detail is
// logged, never leaked to the caller.
func NewInternalError(instance string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusInternalServerError,
		"/errors/internal",
		"Internal Server Error",
		"An unexpected error occurred.",
		instance,
	)
}
