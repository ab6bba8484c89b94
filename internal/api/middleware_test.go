package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/escape-room-booking/internal/admin"
	"github.com/nekogravitycat/escape-room-booking/internal/auth"
)

type stubAdmins struct {
	admin.Service
	admins map[string]*admin.Admin
}

func (s *stubAdmins) GetByID(_ context.Context, id string) (*admin.Admin, error) {
	a, ok := s.admins[id]
	if !ok {
		return nil, admin.ErrNotFound
	}
	return a, nil
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwt := auth.NewJWTManager("secret", time.Minute)
	admins := &stubAdmins{admins: map[string]*admin.Admin{
		"active":   {ID: "active", IsActive: true},
		"disabled": {ID: "disabled", IsActive: false},
	}}

	r := gin.New()
	r.GET("/admin", auth.AuthRequired(jwt), RequireAdmin(admins), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	token := func(id string) string {
		s, err := jwt.GenerateAccessToken(id, id+"@example.com")
		require.NoError(t, err)
		return s
	}

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/admin", token("active")).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", token("disabled")).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", token("deleted")).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", "").Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/bookings", RateLimit(6), func(c *gin.Context) { c.Status(http.StatusCreated) })

	// 6 per minute gives a burst of one request.
	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/bookings", "").Code)
	w := serve(r, http.MethodPost, "/bookings", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")
}

func TestRateLimit_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/bookings", RateLimit(0), func(c *gin.Context) { c.Status(http.StatusCreated) })

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/bookings", "").Code)
	}
}

func TestIPLimiter_PerClient(t *testing.T) {
	l := newIPLimiter(60, 1)
	now := time.Now()

	assert.True(t, l.allow("10.0.0.1", now))
	assert.False(t, l.allow("10.0.0.1", now))
	assert.True(t, l.allow("10.0.0.2", now))
	assert.True(t, l.allow("10.0.0.1", now.Add(time.Second)))
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/ping", "")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	assert.Contains(t, buf.String(), `"path":"/ping"`)
	assert.Contains(t, buf.String(), `"status":200`)
}

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("down") }

	r := gin.New()
	r.GET("/ok", readyz(map[string]ReadinessCheck{"db": healthy}))
	r.GET("/bad", readyz(map[string]ReadinessCheck{"db": healthy, "redis": broken}))

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok", "").Code)
	w := serve(r, http.MethodGet, "/bad", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "redis not ready", w.Body.String())
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitOrigins(" https://a.example, ,https://b.example "))
	assert.Nil(t, splitOrigins(""))
}
