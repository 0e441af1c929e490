package http

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const clientIdleExpiry = 5 * time.Minute

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter applies a token bucket per client address. Clients idle for
// longer than clientIdleExpiry are evicted lazily as new requests arrive.
type rateLimiter struct {
	rps        rate.Limit
	burst      int
	trustProxy bool
	now        func() time.Time

	mu        sync.Mutex
	clients   map[string]*limitedClient
	lastSweep time.Time
}

func newRateLimiter(rps float64, burst int, trustProxy bool) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		trustProxy: trustProxy,
		now:        time.Now,
		clients:    make(map[string]*limitedClient),
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > time.Minute {
		for k, cl := range rl.clients {
			if now.Sub(cl.lastSeen) > clientIdleExpiry {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}

	cl, ok := rl.clients[ip]
	if !ok {
		cl = &limitedClient{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (rl *rateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ip := clientIP(req, rl.trustProxy)
		if !rl.allow(ip) {
			slog.Warn("rate limit exceeded", "client", ip, "path", req.URL.Path)
			http.Error(rw, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(rw, req)
	})
}

// clientIP returns the host part of the connection's remote address. When
// the server sits behind a trusted reverse proxy the first address in
// X-Forwarded-For is used instead; otherwise the header is client controlled
// and ignored.
func clientIP(req *http.Request, trustProxy bool) string {
	if fwd := req.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
