// Package responses writes RFC 7807 problem documents for API errors.
package responses

import (
	"net/http"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/errors"
	"github.com/gin-gonic/gin"
)

// TraceIDKey is the gin context key holding the request trace ID
const TraceIDKey = "trace_id"

// Error sends an error response using RFC 7807 format
func Error(c *gin.Context, problemDetails *errors.ProblemDetails) {
	// Add trace ID if available and not already set
	if problemDetails.TraceID == "" {
		if traceID := getTraceID(c); traceID != "" {
			problemDetails.WithTraceID(traceID)
		}
	}

	if problemDetails.Extra == nil {
		problemDetails.WithExtra("timestamp", time.Now().UTC().Format(time.RFC3339))
	}

	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(problemDetails.Status, problemDetails)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, detail string, validationErrors ...errors.ValidationError) {
	problemDetails := errors.NewValidationError(detail, c.Request.URL.Path)
	if len(validationErrors) > 0 {
		problemDetails.WithValidationErrors(validationErrors)
	}
	Error(c, problemDetails)
}

// InvalidQuery sends a 400 response naming the offending query parameter
func InvalidQuery(c *gin.Context, detail string, param errors.ValidationError) {
	problemDetails := errors.NewInvalidQueryError(detail, c.Request.URL.Path)
	problemDetails.WithValidationErrors([]errors.ValidationError{param})
	Error(c, problemDetails)
}

// TooManyRequests sends a 429 Too Many Requests response
func TooManyRequests(c *gin.Context, detail string) {
	problemDetails := errors.NewRateLimitError(detail, c.Request.URL.Path)
	Error(c, problemDetails)
}

// PayloadTooLarge sends a 413 Request Entity Too Large response
func PayloadTooLarge(c *gin.Context, detail string) {
	problemDetails := errors.NewPayloadTooLargeError(detail, c.Request.URL.Path)
	Error(c, problemDetails)
}

// InternalServerError sends a 500 Internal Server Error response
func InternalServerError(c *gin.Context, detail string) {
	problemDetails := errors.NewInternalError(detail, c.Request.URL.Path)
	Error(c, problemDetails)
}

// ServiceUnavailable sends a 503 Service Unavailable response
func ServiceUnavailable(c *gin.Context, detail string) {
	problemDetails := errors.NewServiceUnavailableError(detail, c.Request.URL.Path)
	Error(c, problemDetails)
}

// NotFound sends a 404 with an empty JSON body of the given shape,
// {} for single records and [] for collections
func NotFound(c *gin.Context, empty interface{}) {
	c.AbortWithStatusJSON(http.StatusNotFound, empty)
}

// getTraceID extracts trace ID from context
func getTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}

	// Try to get from headers
	return c.GetHeader("X-Trace-ID")
}
