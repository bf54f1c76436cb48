package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// VerifyThrottle is burst protection for the verification endpoint,
// sitting in front of the persistent attempt cap. One limiter per
// tenant; idle limiters are pruned periodically.
type VerifyThrottle struct {
	mu       sync.Mutex
	limiters map[string]*tenantLimiter
	interval time.Duration
	burst    int
}

type tenantLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewVerifyThrottle(interval time.Duration, burst int) *VerifyThrottle {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if burst <= 0 {
		burst = 3
	}
	t := &VerifyThrottle{
		limiters: make(map[string]*tenantLimiter),
		interval: interval,
		burst:    burst,
	}
	go t.prune()
	return t
}

func (t *VerifyThrottle) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetString("tenant_id")
		if !t.allow(tenantID) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many verification requests, slow down"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (t *VerifyThrottle) allow(tenantID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	tl, ok := t.limiters[tenantID]
	if !ok {
		tl = &tenantLimiter{limiter: rate.NewLimiter(rate.Every(t.interval), t.burst)}
		t.limiters[tenantID] = tl
	}
	tl.lastSeen = time.Now()
	return tl.limiter.Allow()
}

func (t *VerifyThrottle) prune() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-30 * time.Minute)
		t.mu.Lock()
		for id, tl := range t.limiters {
			if tl.lastSeen.Before(cutoff) {
				delete(t.limiters, id)
			}
		}
		t.mu.Unlock()
	}
}
