package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	operationKey = "oscctl.operation"
	deniedKey    = "oscctl.denied"
)

// Operation tags a route with the control operation it drives. Request logs
// and metrics are labelled by this tag instead of the raw path.
func Operation(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(operationKey, name)
		c.Next()
	}
}

// Deny records that the control surface refused the request before it
// reached the router.
func Deny(c *gin.Context, reason error) {
	c.Set(deniedKey, reason.Error())
}

func operationOf(c *gin.Context) string {
	if op := c.GetString(operationKey); op != "" {
		return op
	}
	if path := c.FullPath(); path != "" {
		return path
	}
	return "unmatched"
}

// RequestLogger logs one line per control request. Mutating operations log
// at info, reads at debug, failures at warn or error with the router error
// attached.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		case c.Request.Method != "GET":
			event = logger.Info()
		}

		event = event.
			Str("op", operationOf(c)).
			Str("method", c.Request.Method).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if reason := c.GetString(deniedKey); reason != "" {
			event = event.Str("denied", reason)
		}
		if last := c.Errors.Last(); last != nil {
			event = event.Str("error", last.Error())
		}
		event.Msg("control_request")
	}
}

func RequestMetricsMiddleware(node string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		op := operationOf(c)
		RecordHTTPRequest(node, c.Request.Method, op, c.Writer.Status(), time.Since(start))
		if c.GetString(deniedKey) != "" {
			RecordDenied(node, op)
		}
	}
}
