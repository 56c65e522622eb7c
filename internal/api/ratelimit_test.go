package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fireFrom sends one request with a fixed remote address so every call
// lands in the same bucket.
func fireFrom(r *gin.Engine, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterExhaustsBurst(t *testing.T) {
	// 1 req/min refill keeps the bucket effectively static for the test.
	rl := NewRateLimiter(1, 2)
	r := gin.New()
	r.GET("/probe", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, fireFrom(r, "10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusOK, fireFrom(r, "10.0.0.1:5000").Code)

	w := fireFrom(r, "10.0.0.1:5000")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)
	assert.Contains(t, w.Body.String(), `"kind":"cooldown"`)
}

func TestRateLimiterIsolatesIPs(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	r := gin.New()
	r.GET("/probe", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, fireFrom(r, "10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusTooManyRequests, fireFrom(r, "10.0.0.1:5001").Code)

	// A different IP has a fresh bucket.
	assert.Equal(t, http.StatusOK, fireFrom(r, "10.0.0.2:5000").Code)
}
