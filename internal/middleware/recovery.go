package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// Recovery recovers from panics, logs the value with its stack trace and
// answers with the standard 500 envelope. The stack never reaches the client.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", r),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				if c.Writer.Written() {
					c.Abort()
					return
				}
				pkg.Error(c, domain.NewAppError(domain.CodeInternal, "internal server error", nil))
				c.Abort()
			}
		}()
		c.Next()
	}
}
