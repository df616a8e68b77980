package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/davidbz/chatrelay/internal/observability"
)

const (
	rateWindow     = time.Hour
	visitorIdleTTL = rateWindow
	pruneInterval  = 10 * time.Minute
)

// RateLimit allows each client IP maxPerHour requests per hour, refilled
// continuously. Zero or negative disables the limit.
func RateLimit(maxPerHour int) Middleware {
	if maxPerHour <= 0 {
		return passthrough
	}

	visitors := newVisitorLimiter(maxPerHour, time.Now)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !visitors.allow(ip) {
				observability.FromContext(r.Context()).Warn("rate limit exceeded",
					observability.String("client_ip", ip),
				)
				reject(w, http.StatusTooManyRequests, "Fail", "Too many request from this IP in 1 hour")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, or the remote address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitorLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastPrune time.Time
}

func newVisitorLimiter(perHour int, now func() time.Time) *visitorLimiter {
	return &visitorLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(rateWindow / time.Duration(perHour)),
		burst:     perHour,
		now:       now,
		lastPrune: now(),
	}
}

func (v *visitorLimiter) allow(ip string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastPrune) > pruneInterval {
		for key, entry := range v.visitors {
			if now.Sub(entry.lastSeen) > visitorIdleTTL {
				delete(v.visitors, key)
			}
		}
		v.lastPrune = now
	}

	entry, ok := v.visitors[ip]
	if !ok {
		entry = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.visitors[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}
