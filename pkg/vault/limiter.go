package vault

import (
	"sync"

	"golang.org/x/time/rate"
)

// failureLimiter throttles reads per user hash after repeated decryption
// failures, so the store cannot be used as a key-guessing oracle at speed.
// Failures consume tokens; once the budget is exhausted, reads for that user
// are denied before any cipher work until the limiter refills.
type failureLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// newFailureLimiter creates a limiter allowing the given sustained failure
// rate per second with the given burst. A non-positive rate disables
// throttling.
func newFailureLimiter(failuresPerSecond float64, burst int) *failureLimiter {
	return &failureLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(failuresPerSecond),
		burst:    burst,
	}
}

func (l *failureLimiter) enabled() bool {
	return l.rate > 0 && l.burst > 0
}

func (l *failureLimiter) get(userHash string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[userHash]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[userHash] = limiter
	}
	return limiter
}

// blocked reports whether reads for the user are currently throttled.
// Checking does not consume budget.
func (l *failureLimiter) blocked(userHash string) bool {
	if !l.enabled() {
		return false
	}
	return l.get(userHash).Tokens() < 1
}

// penalize consumes one unit of failure budget for the user.
func (l *failureLimiter) penalize(userHash string) {
	if !l.enabled() {
		return
	}
	l.get(userHash).Allow()
}
