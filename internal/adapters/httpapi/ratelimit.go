package httpapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SessionLimiter limite les actions coûteuses (sync manuelle) par session panneau.
type SessionLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSessionLimiter autorise une action toutes les `every`. every <= 0 désactive la limite.
func NewSessionLimiter(every time.Duration, burst int) *SessionLimiter {
	r := rate.Inf
	if every > 0 {
		r = rate.Every(every)
	}
	if burst < 1 {
		burst = 1
	}
	return &SessionLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
		idle:     time.Hour,
	}
}

func (l *SessionLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		l.sweepLocked(now)
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweepLocked oublie les sessions sans activité depuis l.idle.
func (l *SessionLimiter) sweepLocked(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, k)
		}
	}
}
