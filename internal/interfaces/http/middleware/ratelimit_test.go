package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
)

// frozenLimiter returns a limiter whose clock only moves when the test says so
func frozenLimiter(t *testing.T, limit int, window time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	limiter := NewRateLimiter(limit, window)
	t.Cleanup(limiter.Stop)
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestRateLimiter(t *testing.T) {
	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter, _ := frozenLimiter(t, 3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("client"), "request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow("client"))
	})

	t.Run("separate limits per client", func(t *testing.T) {
		limiter, _ := frozenLimiter(t, 2, time.Minute)

		assert.True(t, limiter.Allow("clientA"))
		assert.True(t, limiter.Allow("clientA"))
		assert.False(t, limiter.Allow("clientA"))
		assert.True(t, limiter.Allow("clientB"))
	})

	t.Run("refills over the window", func(t *testing.T) {
		limiter, now := frozenLimiter(t, 2, time.Minute)

		assert.True(t, limiter.Allow("client"))
		assert.True(t, limiter.Allow("client"))
		assert.False(t, limiter.Allow("client"))

		*now = now.Add(30 * time.Second)
		assert.True(t, limiter.Allow("client"))
		assert.False(t, limiter.Allow("client"))
	})

	t.Run("remaining returns correct count", func(t *testing.T) {
		limiter, _ := frozenLimiter(t, 5, time.Minute)

		assert.Equal(t, 5, limiter.Remaining("newclient"))
		limiter.Allow("newclient")
		limiter.Allow("newclient")
		assert.Equal(t, 3, limiter.Remaining("newclient"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter, _ := frozenLimiter(t, 100, time.Minute)
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("concurrent-client") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, 100, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter, _ := frozenLimiter(t, 2, time.Minute)
	router := gin.New()
	router.Use(RequestID(), func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			setClaims(c, &auth.Claims{UserID: id, Role: auth.RoleDispatcher})
		}
		c.Next()
	}, RateLimit(limiter))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	get := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		return serve(router, req)
	}

	w := get("")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, get("").Code)

	w = get("")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	// same address, but an authenticated caller has its own bucket
	assert.Equal(t, http.StatusOK, get("7c9e6679-7425-40de-944b-e07fc1f90ae7").Code)
}
