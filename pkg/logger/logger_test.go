package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/lms-api/pkg/config"
)

func newObservedRouter() (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(GinMiddleware(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/courses/:id", func(c *gin.Context) {
		c.Set(UserIDKey, "student-1")
		c.Status(http.StatusForbidden)
	})
	return r, logs
}

func TestGinMiddlewareLevelsAndFields(t *testing.T) {
	r, logs := newObservedRouter()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/courses/c-1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	denied := entries[0]
	assert.Equal(t, zapcore.WarnLevel, denied.Level)
	fields := denied.ContextMap()
	assert.Equal(t, "student-1", fields["user_id"])
	assert.Equal(t, "/api/courses/:id", fields["route"])
	assert.EqualValues(t, http.StatusForbidden, fields["status"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "loud", Format: "json"}})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
