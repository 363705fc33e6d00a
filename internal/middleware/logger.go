package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one access line per request: method, route, status, latency,
// client IP and, when authenticated, the user ID. Paths listed in skip (for
// example health checks and metrics scrapes) are not logged.
//
// The level follows the status class: Info for 2xx/3xx, Warn for 4xx and
// Error for 5xx. Context-aware logging picks up request_id from the context.
func Logger(logger *slog.Logger, skip ...string) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.Int("bytes", c.Writer.Size()),
		}
		if id := CurrentUserID(c); id != 0 {
			attrs = append(attrs, slog.Uint64("user_id", uint64(id)))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}
