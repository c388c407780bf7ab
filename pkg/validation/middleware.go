package validation

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/Aidin1998/cryptoapi/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxHeaderLength = 2000

// DefaultMaxBodyBytes bounds request bodies when no limit is given
const DefaultMaxBodyBytes int64 = 1 << 20

// RequestGuardMiddleware rejects requests that no JSON handler should see:
// oversized headers, bodies larger than maxBodyBytes and bodies that are
// not JSON. Rejections are written as problem documents.
func RequestGuardMiddleware(logger *zap.Logger, maxBodyBytes int64) gin.HandlerFunc {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	return func(c *gin.Context) {
		if err := validateHeaders(c); err != nil {
			reject(c, logger, errors.NewValidationError(err.Error(), c.Request.URL.Path))
			return
		}

		if hasBody(c.Request) {
			if c.Request.ContentLength > maxBodyBytes {
				reject(c, logger, errors.NewPayloadTooLargeError(
					fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes), c.Request.URL.Path))
				return
			}
			if err := validateContentType(c.GetHeader("Content-Type")); err != nil {
				reject(c, logger, errors.NewUnsupportedMediaError(err.Error(), c.Request.URL.Path))
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		}

		c.Next()
	}
}

// validateHeaders validates important headers
func validateHeaders(c *gin.Context) error {
	for _, header := range []string{"User-Agent", "Content-Type", "Accept", "Origin", "Referer", "X-Trace-ID"} {
		if len(c.GetHeader(header)) > maxHeaderLength {
			return fmt.Errorf("header %s exceeds maximum length", header)
		}
	}
	return nil
}

func validateContentType(contentType string) error {
	if contentType == "" {
		return fmt.Errorf("missing Content-Type header, use application/json")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("invalid Content-Type %q", contentType)
	}
	if mediaType != "application/json" {
		return fmt.Errorf("unsupported Content-Type %q, use application/json", mediaType)
	}
	return nil
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	default:
		return false
	}
}

func reject(c *gin.Context, logger *zap.Logger, problem *errors.ProblemDetails) {
	logger.Debug("Request rejected",
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", problem.Status),
		zap.String("detail", problem.Detail))
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(problem.Status, problem)
}
