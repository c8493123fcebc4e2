package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter is a weighted sliding-window rate limiter keyed by client IP.
// Each request spends a route-specific number of units from the IP's
// per-window budget: creating or promoting an original is bookkeeping,
// but an inscribe kicks off commit/reveal broadcasts and confirmation
// polling against a live Bitcoin network, so it is weighted several
// times heavier (see SetupRouter for the per-route costs). When the
// budget is exhausted the request receives HTTP 429 with a Retry-After
// derived from when the oldest in-window spend expires.
type Limiter struct {
	window time.Duration
	budget int

	mu      sync.Mutex
	clients map[string][]spend
}

// spend is one in-window deduction from an IP's budget.
type spend struct {
	at   time.Time
	cost int
}

// NewLimiter allows `budget` units per `window` per IP.
func NewLimiter(window time.Duration, budget int) *Limiter {
	return &Limiter{
		window:  window,
		budget:  budget,
		clients: make(map[string][]spend),
	}
}

// allow records a spend of cost units for ip if the window budget permits
// it, and otherwise reports how long until the oldest in-window spend
// expires (the full window when ip has none). Expired spends of ip are
// pruned only when ip calls again, so the entry of an IP that goes quiet
// stays in the map until its next request; an entry is deleted only when a
// request whose cost alone exceeds the budget finds no in-window spends.
func (l *Limiter) allow(ip string, cost int) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	live := l.clients[ip][:0]
	for _, s := range l.clients[ip] {
		if s.at.After(cutoff) {
			live = append(live, s)
		}
	}

	used := 0
	for _, s := range live {
		used += s.cost
	}

	if used+cost > l.budget {
		retryAfter := l.window
		if len(live) > 0 {
			l.clients[ip] = live
			retryAfter = live[0].at.Add(l.window).Sub(now)
		} else {
			// cost alone exceeds the budget; nothing in-window to expire.
			delete(l.clients, ip)
		}
		return false, retryAfter
	}

	l.clients[ip] = append(live, spend{at: now, cost: cost})
	return true, 0
}

// Middleware returns a Gin handler that charges cost units against the
// caller's IP before admitting the request.
func (l *Limiter) Middleware(cost int) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := l.allow(c.ClientIP(), cost)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"retryAfter": retryAfter.String(),
				"limit":      fmt.Sprintf("%d units/%s per IP", l.budget, l.window),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
