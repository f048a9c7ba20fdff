package api

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// accessLog is the request-scoped access logger. It is the one place this
// module reaches for zerolog rather than the hand-rolled internal/logging
// package, mirroring how the reference implementation keeps its gin.Logger() access log
// separate from its application-level logger.
var accessLog = zerolog.New(os.Stdout).With().Timestamp().Str("component", "api").Logger()

// accessLogMiddleware logs one structured line per request: method, path,
// status, latency, and a generated request id echoed back as a response
// header for client-side correlation.
func accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.New().String()
		c.Writer.Header().Set("X-Request-Id", requestID)
		c.Set("request_id", requestID)

		c.Next()

		accessLog.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}
