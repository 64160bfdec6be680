package logging

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// RequestIDKey is the gin context key holding the request correlation ID.
	RequestIDKey = "request_id"

	loggerKey = "logger"
)

type ctxLoggerKey struct{}

// Middleware attaches a request-scoped logger to the gin and request contexts
// and writes one access line per request once the handler chain returns.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		logger := Logger()
		if reqID := c.GetString(RequestIDKey); reqID != "" {
			logger = logger.With(zap.String("request_id", reqID))
		}
		c.Set(loggerKey, logger)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxLoggerKey{}, logger))

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// Recovery turns panics into a logged 500 with the standard error body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		FromContext(c).Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	})
}

// FromContext returns the request-scoped logger, or the process logger outside a request.
func FromContext(c *gin.Context) *zap.Logger {
	if c != nil {
		if v, ok := c.Get(loggerKey); ok {
			if l, ok := v.(*zap.Logger); ok && l != nil {
				return l
			}
		}
	}
	return Logger()
}

// FromStdContext is FromContext for code that only sees a context.Context.
func FromStdContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLoggerKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return Logger()
}
