// Package errors provides error handling using the RFC 7807 Problem Details standard
package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Standard error functions
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
	New    = errors.New
)

// Problem type URIs
const (
	TypeValidationError    = "https://api.cryptoapi.dev/problems/validation-error"
	TypeInvalidQuery       = "https://api.cryptoapi.dev/problems/invalid-query"
	TypeNotFound           = "https://api.cryptoapi.dev/problems/not-found"
	TypeRateLimit          = "https://api.cryptoapi.dev/problems/rate-limit"
	TypeUnsupportedMedia   = "https://api.cryptoapi.dev/problems/unsupported-media-type"
	TypePayloadTooLarge    = "https://api.cryptoapi.dev/problems/payload-too-large"
	TypeInternalError      = "https://api.cryptoapi.dev/problems/internal-error"
	TypeServiceUnavailable = "https://api.cryptoapi.dev/problems/service-unavailable"
)

// Problem titles
const (
	TitleValidationError    = "Validation Error"
	TitleInvalidQuery       = "Invalid Query Parameter"
	TitleNotFound           = "Not Found"
	TitleRateLimit          = "Rate Limit Exceeded"
	TitleUnsupportedMedia   = "Unsupported Media Type"
	TitlePayloadTooLarge    = "Payload Too Large"
	TitleInternalError      = "Internal Server Error"
	TitleServiceUnavailable = "Service Unavailable"
)

// ValidationError represents a validation error for RFC 7807
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	TraceID  string                 `json:"trace_id,omitempty"`
	Errors   []ValidationError      `json:"errors,omitempty"`
	Extra    map[string]interface{} `json:"-"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return p.Detail
}

// WithTraceID adds a trace ID to the problem details
func (p *ProblemDetails) WithTraceID(traceID string) *ProblemDetails {
	p.TraceID = traceID
	return p
}

// WithValidationErrors adds validation errors to the problem details
func (p *ProblemDetails) WithValidationErrors(errors []ValidationError) *ProblemDetails {
	p.Errors = errors
	return p
}

// WithExtra adds extra fields to the problem details (they will be serialized at the top level)
func (p *ProblemDetails) WithExtra(key string, value interface{}) *ProblemDetails {
	if p.Extra == nil {
		p.Extra = make(map[string]interface{})
	}
	p.Extra[key] = value
	return p
}

// MarshalJSON implements custom JSON marshaling to include extra fields at the top level
func (p *ProblemDetails) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{})
	result["type"] = p.Type
	result["title"] = p.Title
	result["status"] = p.Status
	if p.Detail != "" {
		result["detail"] = p.Detail
	}
	if p.Instance != "" {
		result["instance"] = p.Instance
	}
	if p.TraceID != "" {
		result["trace_id"] = p.TraceID
	}
	if len(p.Errors) > 0 {
		result["errors"] = p.Errors
	}

	for k, v := range p.Extra {
		result[k] = v
	}

	return json.Marshal(result)
}

// NewValidationError creates a validation error problem
func NewValidationError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeValidationError, TitleValidationError, http.StatusBadRequest, detail, instance)
}

// NewInvalidQueryError creates a problem for a malformed query parameter
func NewInvalidQueryError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeInvalidQuery, TitleInvalidQuery, http.StatusBadRequest, detail, instance)
}

// NewNotFoundError creates a not found error problem
func NewNotFoundError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeNotFound, TitleNotFound, http.StatusNotFound, detail, instance)
}

// NewRateLimitError creates a rate limit error problem
func NewRateLimitError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeRateLimit, TitleRateLimit, http.StatusTooManyRequests, detail, instance)
}

// NewUnsupportedMediaError creates a problem for a body in the wrong format
func NewUnsupportedMediaError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeUnsupportedMedia, TitleUnsupportedMedia, http.StatusUnsupportedMediaType, detail, instance)
}

// NewPayloadTooLargeError creates a problem for an oversized request body
func NewPayloadTooLargeError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypePayloadTooLarge, TitlePayloadTooLarge, http.StatusRequestEntityTooLarge, detail, instance)
}

// NewInternalError creates an internal server error problem
func NewInternalError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeInternalError, TitleInternalError, http.StatusInternalServerError, detail, instance)
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeServiceUnavailable, TitleServiceUnavailable, http.StatusServiceUnavailable, detail, instance)
}

// NewProblemDetails creates a generic problem details with all fields
func NewProblemDetails(problemType, title string, status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}
