package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"order-tracking-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ok?page=2", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/bad", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok?page=2", entries[0].ContextMap()["path"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "abc-123", entries[1].ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("explotó") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recuperado").Len())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://admin.sharkletas.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://admin.sharkletas.com")
	w := serve(r, req)
	assert.Equal(t, "https://admin.sharkletas.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://admin.sharkletas.com")
	w = serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewRateLimiter(2, time.Minute)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// otra IP tiene su propia ventana
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	ok, _, _ := rl.Allow("ip")
	require.True(t, ok)
	ok, _, _ = rl.Allow("ip")
	require.False(t, ok)

	time.Sleep(80 * time.Millisecond)
	ok, remaining, _ := rl.Allow("ip")
	assert.True(t, ok)
	assert.Zero(t, remaining)
}

type stubValidator struct {
	user *service.AuthUser
	err  error
}

func (s stubValidator) ValidateToken(_ context.Context, token string) (*service.AuthUser, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != "good" {
		return nil, service.ErrInvalidToken
	}
	return s.user, nil
}

func TestAuthMiddleware(t *testing.T) {
	admin := &service.AuthUser{ID: "u1", Name: "Ana", Permissions: []string{"admin"}, Enabled: true}
	viewer := &service.AuthUser{ID: "u2", Name: "Luis", Permissions: []string{"orders:read"}, Enabled: true}

	build := func(v TokenValidator) *gin.Engine {
		r := gin.New()
		r.GET("/x", AuthMiddleware(v), AdminOnly(), func(c *gin.Context) {
			c.String(http.StatusOK, c.GetString(UserNameKey))
		})
		return r
	}
	get := func(r *gin.Engine, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		return serve(r, req)
	}

	tests := []struct {
		name   string
		v      TokenValidator
		header string
		code   int
	}{
		{"sin header", stubValidator{user: admin}, "", http.StatusUnauthorized},
		{"token malo", stubValidator{user: admin}, "Bearer bad", http.StatusUnauthorized},
		{"sin permiso", stubValidator{user: viewer}, "Bearer good", http.StatusForbidden},
		{"auth caído", stubValidator{err: errors.New("dial tcp")}, "Bearer good", http.StatusBadGateway},
		{"admin", stubValidator{user: admin}, "Bearer good", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(build(tc.v), tc.header)
			assert.Equal(t, tc.code, w.Code)
		})
	}
	assert.Equal(t, "Ana", get(build(stubValidator{user: admin}), "Bearer good").Body.String())
}
