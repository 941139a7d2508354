package middleware

import (
	"net/http"
	"sync"
	"time"

	"payhub/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// windowLimiter counts requests per client IP in fixed windows. Expired
// windows are dropped by a background sweep.
type windowLimiter struct {
	name   string
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*window
}

type window struct {
	count int
	ends  time.Time
}

const sweepInterval = 5 * time.Minute

func newWindowLimiter(name string, limit int, period time.Duration) *windowLimiter {
	l := &windowLimiter{
		name:    name,
		limit:   limit,
		window:  period,
		now:     time.Now,
		clients: make(map[string]*window),
	}
	go l.sweepLoop()
	return l
}

// allow registers a request from ip and reports whether it fits the window,
// together with the end of the current window.
func (l *windowLimiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[ip]
	if !ok || now.After(w.ends) {
		w = &window{ends: now.Add(l.window)}
		l.clients[ip] = w
	}
	w.count++
	return w.count <= l.limit, w.ends
}

func (l *windowLimiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	purged := 0
	for ip, w := range l.clients {
		if now.After(w.ends) {
			delete(l.clients, ip)
			purged++
		}
	}
	return purged
}

func (l *windowLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		if n := l.sweep(); n > 0 {
			log.Debug().Str("limiter", l.name).Int("purged", n).Msg("rate limiter: expired windows dropped")
		}
	}
}

func (l *windowLimiter) handler(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, ends := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", ends.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(message))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter allows 20 login attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newWindowLimiter("login", 20, time.Minute).handler("too many login attempts, try again in a minute")
}

// RateLimiter limits every route to limit requests per window per IP.
func RateLimiter(limit int, period time.Duration) gin.HandlerFunc {
	return newWindowLimiter("api", limit, period).handler("too many requests, try again later")
}
