package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payhub/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	open := gin.New()
	open.Use(CORS(nil))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(open, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	listed := gin.New()
	listed.Use(CORS([]string{"https://office.example"}))
	listed.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://office.example")
	w = serve(listed, req)
	assert.Equal(t, "https://office.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = serve(listed, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://office.example")
	w = serve(listed, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := serve(r, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Body.String(), 36)
}

func signedToken(t *testing.T, secret, role string, exp time.Time) string {
	t.Helper()
	claims := JWTClaims{
		UserID: 1,
		Email:  "op@example.com",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTAuthAndRoles(t *testing.T) {
	const secret = "test-secret"
	r := gin.New()
	r.GET("/books", JWTAuth(secret), RequireRole("admin", "accountant"), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Role)
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		return serve(r, req)
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+signedToken(t, "other", "admin", time.Now().Add(time.Hour))).Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+signedToken(t, secret, "admin", time.Now().Add(-time.Hour))).Code)
	assert.Equal(t, http.StatusForbidden, call("Bearer "+signedToken(t, secret, "franchise", time.Now().Add(time.Hour))).Code)

	w := call("Bearer " + signedToken(t, secret, "accountant", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "accountant", w.Body.String())
}

func TestWindowLimiter(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := &windowLimiter{name: "test", limit: 2, window: time.Minute, clients: map[string]*window{}}
	l.now = func() time.Time { return clock }

	ok, _ := l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, ends := l.allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, clock.Add(time.Minute), ends)

	ok, _ = l.allow("10.0.0.2")
	assert.True(t, ok, "limits are per client")

	clock = clock.Add(61 * time.Second)
	assert.Equal(t, 2, l.sweep())
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)
}

func TestRateLimiterRejectsWith429(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(1, time.Minute))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/missing", func(c *gin.Context) { _ = c.Error(apierror.NotFound("certificate %s not found", "C1")) })
	r.GET("/conflict", func(c *gin.Context) { _ = c.Error(apierror.Conflict("link already paid")) })
	r.GET("/broken", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection refused")) })
	r.GET("/handled", func(c *gin.Context) {
		_ = c.Error(errors.New("logged only"))
		c.String(http.StatusAccepted, "queued")
	})

	cases := []struct {
		path   string
		status int
		detail string
	}{
		{"/missing", http.StatusNotFound, "certificate C1 not found"},
		{"/conflict", http.StatusConflict, "link already paid"},
		{"/broken", http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			w := serve(r, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, w.Code)

			var body apierror.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.detail, body.Detail)
		})
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/handled", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}
