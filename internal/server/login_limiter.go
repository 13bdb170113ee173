package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginRateLimiter throttles password-guessing by holding one token bucket
// per source IP. It sits in front of the registry so a brute-force run burns
// its budget before any bcrypt work happens.
type LoginRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rateLimiterEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginRateLimiter creates a limiter allowing the given sustained attempts
// per second with the given burst headroom.
func NewLoginRateLimiter(attemptsPerSecond float64, burst int) *LoginRateLimiter {
	return &LoginRateLimiter{
		limiters:  make(map[string]*rateLimiterEntry),
		rate:      rate.Limit(attemptsPerSecond),
		burst:     burst,
		cleanupAt: time.Now().Add(5 * time.Minute),
	}
}

// Allow reports whether a login attempt from the given IP may proceed.
// A denied attempt never reaches credential verification.
func (l *LoginRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Buckets for IPs that stopped trying are swept opportunistically on
	// the next attempt, whoever it comes from.
	if time.Now().After(l.cleanupAt) {
		l.cleanup()
		l.cleanupAt = time.Now().Add(5 * time.Minute)
	}

	entry, exists := l.limiters[ip]
	if !exists {
		entry = &rateLimiterEntry{
			limiter:  rate.NewLimiter(l.rate, l.burst),
			lastSeen: time.Now(),
		}
		l.limiters[ip] = entry
	}

	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// cleanup drops buckets idle for 10 minutes. Callers hold l.mu.
func (l *LoginRateLimiter) cleanup() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

// ActiveLimiters reports how many IPs currently have a bucket.
func (l *LoginRateLimiter) ActiveLimiters() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
