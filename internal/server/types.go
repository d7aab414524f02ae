// Package server provides the HTTP interface of the media editing service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// TemplateConfig is the per-kind defaults section of a template request.
type TemplateConfig struct {
	// Video holds edit defaults for video uploads.
	Video map[string]any `json:"video,omitempty"`
	// Image holds edit defaults for image uploads.
	Image map[string]any `json:"image,omitempty"`
}

// CreateTemplateRequest is the HTTP request body for saving a template.
type CreateTemplateRequest struct {
	// Name is the display name; the template id is derived from it.
	Name string `json:"name" validate:"required,max=200"`
	// Config holds the edit defaults. It must be a JSON object.
	Config *TemplateConfig `json:"config" validate:"required"`
}

// JobResponse is the HTTP response for a request record.
type JobResponse struct {
	ID          string     `json:"id"`
	Action      string     `json:"action"`
	Kind        string     `json:"kind,omitempty"`
	Status      string     `json:"status"`
	Template    string     `json:"template,omitempty"`
	OutputName  string     `json:"output_name,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	OutputURL   string     `json:"output_url,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
