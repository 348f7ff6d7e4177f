package http

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/azizikri/qr-credits/internal/identity"
	"golang.org/x/time/rate"
)

const visitorTTL = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles scan submissions per ledger owner.
type RateLimiter struct {
	logger    *log.Logger
	perSecond rate.Limit
	burst     int
	clockNow  func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(requestsPerMinute float64, burst int, logger *log.Logger) *RateLimiter {
	if logger == nil {
		logger = log.Default()
	}
	perSecond := requestsPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		logger:    logger,
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		clockNow:  time.Now,
		visitors:  make(map[string]*visitor),
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.FromContext(r.Context())
		if !ok || id.UserID == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !l.Allow(id.UserID) {
			l.logger.Printf("rate limit exceeded for %s", id.UserID)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow reports whether userID may submit another scan now.
func (l *RateLimiter) Allow(userID string) bool {
	now := l.clockNow()
	key := strings.ToLower(strings.TrimSpace(userID))

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, k)
		}
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}
