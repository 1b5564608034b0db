package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Idle clients are forgotten after this long.
const limiterIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	clients map[string]*clientLimiter

	stop     chan struct{}
	stopOnce sync.Once
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requestsPerSecond per client with the given burst.
// A burst below one is raised to one.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop(time.Minute)
	return rl
}

// Allow consumes a token for client. When the bucket is empty it returns
// false and how long the client should wait.
func (rl *RateLimiter) Allow(client string) (time.Duration, bool) {
	now := time.Now()
	l := rl.limiterFor(client, now)

	res := l.ReserveN(now, 1)
	if !res.OK() {
		return time.Second, false
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay, false
	}
	return 0, true
}

func (rl *RateLimiter) limiterFor(client string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			rl.evictIdle(now)
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, c := range rl.clients {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(rl.clients, id)
		}
	}
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
