package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momogate/config"
	"momogate/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInMemoryRateLimiterWindow(t *testing.T) {
	l := NewInMemoryRateLimiter(2, time.Minute)
	t.Cleanup(l.Stop)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("a"), "window slid past earlier requests")
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewInMemoryRateLimiter(1, time.Minute)
	t.Cleanup(l.Stop)

	r := gin.New()
	r.Use(RateLimit(l))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"rate limit exceeded"}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "jwt-secret", Issuer: "momogate"}
	token, err := auth.GenerateAccessToken(cfg, "user-42", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(OptionalAuth(cfg))
	r.GET("/whoami", func(c *gin.Context) { c.String(http.StatusOK, GetUserID(c)) })

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid token", "Bearer " + token, "user-42"},
		{"no header", "", "guest"},
		{"bad token", "Bearer nope", "guest"},
		{"wrong scheme", "Basic " + token, "guest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/items/:id", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside")
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/1", nil))

	id := w.Header().Get(HeaderRequestID)
	require.NotEmpty(t, id)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var inner, done map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &done))
	assert.Equal(t, id, inner["request_id"])
	assert.Equal(t, id, done["request_id"])
	assert.Equal(t, "warn", done["level"])
	assert.Equal(t, "/items/:id", done["path"])
	assert.EqualValues(t, http.StatusNotFound, done["status"])
}

func TestRequestLoggerKeepsValidIncomingID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "6f1c1f5e-8f33-4c6a-9d55-0a8e4f3c2b11")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "6f1c1f5e-8f33-4c6a-9d55-0a8e4f3c2b11", w.Header().Get(HeaderRequestID))

	req.Header.Set(HeaderRequestID, "not-a-uuid\r\n")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid\r\n", w.Header().Get(HeaderRequestID))
}
