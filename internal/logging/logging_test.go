package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestEncodeSeverity(t *testing.T) {
	tests := map[zapcore.Level]string{
		zapcore.DebugLevel:  "DEBUG",
		zapcore.InfoLevel:   "INFO",
		zapcore.WarnLevel:   "WARNING",
		zapcore.ErrorLevel:  "ERROR",
		zapcore.DPanicLevel: "CRITICAL",
		zapcore.PanicLevel:  "ALERT",
		zapcore.FatalLevel:  "EMERGENCY",
	}
	for lvl, want := range tests {
		enc := &sliceEncoder{}
		encodeSeverity(lvl, enc)
		assert.Equal(t, []string{want}, enc.values, lvl.String())
	}
}

func TestInit_DevelopmentLowersLevel(t *testing.T) {
	t.Cleanup(Replace(nil))

	require.NoError(t, Init("development"))
	assert.True(t, Logger().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("production"))
	assert.False(t, Logger().Core().Enabled(zapcore.DebugLevel))
	assert.NoError(t, Err())
}

func TestMiddleware_LogsRequest(t *testing.T) {
	logs := observe(t)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(RequestIDKey, "req-123")
		c.Next()
	})
	r.Use(Middleware())
	r.GET("/api/hello", func(c *gin.Context) {
		assert.Same(t, FromContext(c), FromStdContext(c.Request.Context()))
		c.String(http.StatusOK, "hi")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hello", nil))

	require.Equal(t, http.StatusOK, w.Code)
	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/hello", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "req-123", fields["request_id"])
}

func TestMiddleware_ClientErrorIsWarning(t *testing.T) {
	logs := observe(t)

	r := gin.New()
	r.Use(Middleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestRecovery(t *testing.T) {
	logs := observe(t)

	r := gin.New()
	r.Use(Middleware(), Recovery())
	r.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"An unexpected error occurred"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestFromContext_FallsBack(t *testing.T) {
	observe(t)

	assert.Same(t, Logger(), FromContext(nil))
	assert.Same(t, Logger(), FromStdContext(context.Background()))
}

type sliceEncoder struct {
	zapcore.PrimitiveArrayEncoder
	values []string
}

func (s *sliceEncoder) AppendString(v string) { s.values = append(s.values, v) }
