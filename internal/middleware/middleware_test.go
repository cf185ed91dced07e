package middleware

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func identityRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	chain := append([]gin.HandlerFunc{BearerIdentity(testSecret)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		userID, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "authenticated": ok})
	})
	router.GET("/whoami", chain...)
	return router
}

func TestBearerIdentity(t *testing.T) {
	now := time.Now()
	testCases := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "anonymous", header: "", wantStatus: http.StatusOK, wantBody: `{"authenticated":false,"user_id":0}`},
		{
			name:       "numeric uid",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"uid": 7, "exp": now.Add(time.Hour).Unix()}),
			wantStatus: http.StatusOK,
			wantBody:   `{"authenticated":true,"user_id":7}`,
		},
		{
			name:       "string uid with HS512",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS512, jwt.MapClaims{"uid": "12"}),
			wantStatus: http.StatusOK,
			wantBody:   `{"authenticated":true,"user_id":12}`,
		},
		{
			name:       "sub fallback",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "3"}),
			wantStatus: http.StatusOK,
			wantBody:   `{"authenticated":true,"user_id":3}`,
		},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-token", wantStatus: http.StatusUnauthorized},
		{
			name:       "expired",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"uid": 7, "exp": now.Add(-time.Hour).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing uid",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"scope": "read"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "zero uid",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"uid": 0}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "fractional uid",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"uid": 1.5}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	router := identityRouter()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, w.Body.String())
			}
			if tc.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
				assert.Contains(t, w.Body.String(), "error_description")
			}
		})
	}
}

func TestBearerIdentityRejectsOtherSecrets(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": 1}).SignedString([]byte("other"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	identityRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth(t *testing.T) {
	router := identityRouter(RequireAuth())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"uid": 5}))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(1, 2)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes[i] = w.Code
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "budgets are per client")
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	limiter.idleTTL = time.Millisecond
	assert.True(t, limiter.Allow("10.0.0.1"))
	time.Sleep(5 * time.Millisecond)
	assert.True(t, limiter.Allow("10.0.0.2"))

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.limiters, "10.0.0.1")
}

func TestRateLimiterSweepsAtMostOncePerTTL(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	start := limiter.lastSweep
	stale := time.Now().Add(-2 * time.Hour)
	limiter.limiters["10.0.0.1"] = &rateLimiterEntry{limiter: rate.NewLimiter(1, 1), lastAccess: stale}

	for i := 0; i < 1000; i++ {
		assert.True(t, limiter.Allow(fmt.Sprintf("10.1.%d.%d", i/256, i%256)))
	}

	limiter.mu.Lock()
	assert.Equal(t, start, limiter.lastSweep, "new clients within the TTL do not rescan the map")
	assert.Contains(t, limiter.limiters, "10.0.0.1")
	assert.Len(t, limiter.limiters, 1001)
	limiter.lastSweep = time.Now().Add(-2 * time.Hour)
	limiter.mu.Unlock()

	assert.True(t, limiter.Allow("10.2.0.1"))

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.limiters, "10.0.0.1")
	assert.Len(t, limiter.limiters, 1001)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger(logrusForTests()))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "6f1f5a8e-2a0b-4e8f-9a57-0d3c2f6f1b11")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "6f1f5a8e-2a0b-4e8f-9a57-0d3c2f6f1b11", w.Header().Get(RequestIDHeader))
}

func logrusForTests() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
