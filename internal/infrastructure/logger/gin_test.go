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
)

func serveLogged(t *testing.T, level zapcore.Level, register func(*gin.Engine), method, target string) (*httptest.ResponseRecorder, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(level)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	register(router)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	return w, recorded
}

func requestLine(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("Request completed").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestGinMiddleware(t *testing.T) {
	t.Run("successful trigger logs at info with timing fields", func(t *testing.T) {
		w, recorded := serveLogged(t, zapcore.InfoLevel, func(r *gin.Engine) {
			r.POST("/api/v1/sync/invoices", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"success": true})
			})
		}, http.MethodPost, "/api/v1/sync/invoices")

		assert.Equal(t, http.StatusOK, w.Code)

		entry := requestLine(t, recorded)
		assert.Equal(t, zapcore.InfoLevel, entry.Level)

		fields := entry.ContextMap()
		assert.Equal(t, http.MethodPost, fields["method"])
		assert.Equal(t, "/api/v1/sync/invoices", fields["path"])
		assert.Contains(t, fields, "latency")
		assert.Contains(t, fields, "client_ip")
		assert.Contains(t, fields, "user_agent")
		assert.EqualValues(t, http.StatusOK, fields["status"])
	})

	t.Run("client errors log at warn", func(t *testing.T) {
		_, recorded := serveLogged(t, zapcore.InfoLevel, func(r *gin.Engine) {
			r.POST("/api/v1/sync/invoices", func(c *gin.Context) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "lookbackMinutes out of range"})
			})
		}, http.MethodPost, "/api/v1/sync/invoices")

		assert.Equal(t, zapcore.WarnLevel, requestLine(t, recorded).Level)
	})

	t.Run("server errors log at error", func(t *testing.T) {
		_, recorded := serveLogged(t, zapcore.InfoLevel, func(r *gin.Engine) {
			r.GET("/api/v1/sync/status", func(c *gin.Context) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database unavailable"})
			})
		}, http.MethodGet, "/api/v1/sync/status")

		assert.Equal(t, zapcore.ErrorLevel, requestLine(t, recorded).Level)
	})

	t.Run("query string is recorded when present", func(t *testing.T) {
		_, recorded := serveLogged(t, zapcore.InfoLevel, func(r *gin.Engine) {
			r.GET("/api/v1/reports/orphaned-applications", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{})
			})
		}, http.MethodGet, "/api/v1/reports/orphaned-applications?limit=10")

		fields := requestLine(t, recorded).ContextMap()
		assert.Equal(t, "limit=10", fields["query"])
	})

	t.Run("request id from earlier middleware is carried", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		core, recorded := observer.New(zapcore.InfoLevel)

		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set("request_id", "req-42")
			c.Next()
		})
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/api/v1/sync/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
		router.ServeHTTP(w, req)

		fields := requestLine(t, recorded).ContextMap()
		assert.Equal(t, "req-42", fields["request_id"])
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.POST("/api/v1/sync/all", func(c *gin.Context) {
		panic("mapper blew up")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync/all", nil)

	assert.NotPanics(t, func() {
		router.ServeHTTP(w, req)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, recorded.FilterMessage("Panic recovered").All(), 1)
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns request-scoped logger inside middleware", func(t *testing.T) {
		core, _ := observer.New(zapcore.InfoLevel)
		var got *zap.Logger

		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/api/v1/sync/status", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
		router.ServeHTTP(w, req)

		assert.NotNil(t, got)
	})

	t.Run("falls back to nop logger without middleware", func(t *testing.T) {
		var got *zap.Logger

		router := gin.New()
		router.GET("/health", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)

		require.NotNil(t, got)
		assert.NotPanics(t, func() { got.Info("probe") })
	})
}
