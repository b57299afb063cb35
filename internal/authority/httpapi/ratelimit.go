package httpapi

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = 10 * time.Minute
)

// ipLimiter throttles credential endpoints per client address. Idle
// limiters are evicted so the table stays bounded.
type ipLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *expirable.LRU[string, *rate.Limiter]
}

// newIPLimiter returns a limiter allowing perSecond requests with the given
// burst. A zero rate disables limiting.
func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	if perSecond <= 0 {
		return &ipLimiter{}
	}
	return &ipLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	if l.limiters == nil {
		return true
	}
	lim, ok := l.limiters.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// re-adding refreshes the idle TTL
	l.limiters.Add(ip, lim)
	return lim.Allow()
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			respondError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the peer address. Forwarding headers are ignored because any
// client can set them.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
