package api

import (
	"fmt"
	"time"

	"github.com/Aidin1998/cryptoapi/api/responses"
	"github.com/Aidin1998/cryptoapi/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// metricsMiddleware records HTTP request counts and durations for Prometheus
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(path, method, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
	}
}

// traceIDMiddleware propagates or assigns an X-Trace-ID for every request
func traceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set(responses.TraceIDKey, traceID)
		c.Header("X-Trace-ID", traceID)
		c.Next()
	}
}
