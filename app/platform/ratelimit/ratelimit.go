package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Memory keeps one token bucket per client in process.
type Memory struct {
	limit   rate.Limit
	burst   int
	window  time.Duration
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemory creates a limiter for the provided requests-per-minute budget.
func NewMemory(requestsPerMinute int) *Memory {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Memory{
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   burst,
		window:  5 * time.Minute,
		clients: make(map[string]*clientLimiter),
	}
}

func (m *Memory) Allow(ctx context.Context, key string) bool {
	if m == nil {
		return true
	}
	return m.getLimiter(key).Allow()
}

func (m *Memory) getLimiter(key string) *rate.Limiter {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.clients[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(m.limit, m.burst)
	m.clients[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	m.cleanupLocked(now)
	return limiter
}

func (m *Memory) cleanupLocked(now time.Time) {
	for key, entry := range m.clients {
		if now.Sub(entry.lastSeen) > m.window {
			delete(m.clients, key)
		}
	}
}

const redisAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Redis is a fixed window counter shared by every instance using the same server.
type Redis struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

func NewRedis(client redisEvaler, window time.Duration, max int) *Redis {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &Redis{
		client: client,
		window: window,
		max:    max,
		prefix: "ams:rl:",
	}
}

// Allow fails open when Redis is unreachable.
func (l *Redis) Allow(ctx context.Context, key string) bool {
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisAllowScript, []string{l.prefix + normalizedKey}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
