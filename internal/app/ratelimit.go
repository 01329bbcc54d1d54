package app

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long an address may go without a request before its
// limiter is dropped.
const limiterIdle = 3 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Every preview request runs the report query, so clients are throttled
// per address.
type ipLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiter(r rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		clients: make(map[string]*client),
		rate:    r,
		burst:   burst,
		idle:    limiterIdle,
		now:     time.Now,
	}
}

func (ipl *ipLimiter) get(ip string) *rate.Limiter {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	now := ipl.now()
	if now.Sub(ipl.lastSweep) >= ipl.idle {
		ipl.sweep(now)
	}

	c, ok := ipl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(ipl.rate, ipl.burst)}
		ipl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// sweep drops clients idle for longer than ipl.idle. Callers hold ipl.mu.
func (ipl *ipLimiter) sweep(now time.Time) {
	for ip, c := range ipl.clients {
		if now.Sub(c.lastSeen) > ipl.idle {
			delete(ipl.clients, ip)
		}
	}
	ipl.lastSweep = now
}

func (ipl *ipLimiter) size() int {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()
	return len(ipl.clients)
}

func rateLimit(r rate.Limit, burst int) func(http.Handler) http.Handler {
	il := newIPLimiter(r, burst)
	return il.middleware
}

func (ipl *ipLimiter) middleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !ipl.get(ip).Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		h.ServeHTTP(w, r)
	})
}
