package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newLimitedRouter(t *testing.T, rl *RateLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/join", rl.LimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func hit(r *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/join", nil)
	req.RemoteAddr = ip + ":40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	r := newLimitedRouter(t, NewRateLimiter(rate.Limit(0.001), 2, done))

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.1"))
}

func TestRateLimiter_SeparateBucketsPerIP(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	r := newLimitedRouter(t, NewRateLimiter(rate.Limit(0.001), 1, done))

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.2"))
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	rl := NewRateLimiter(rate.Limit(1), 1, done)

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.getVisitor("10.0.0.1")
	clock = clock.Add(visitorTTL - time.Minute)
	rl.getVisitor("10.0.0.2")

	clock = clock.Add(2 * time.Minute)
	rl.evictIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.2")
}
