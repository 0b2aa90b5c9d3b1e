package router

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ovaphlow/pitchfork/service-user-go/pkg/response"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a per-key token bucket. Keys idle for longer than ttl are
// dropped by Sweep, which RunEviction schedules off the request path.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryLimiter(perMinute int, ttl time.Duration) *MemoryLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Sweep drops keys idle for longer than the ttl.
func (l *MemoryLimiter) Sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, k)
		}
	}
}

// RunEviction calls Sweep every interval until ctx is done.
func (l *MemoryLimiter) RunEviction(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

const rateLimitKeyPrefix = "ratelimit:user:"

// RedisLimiter is a fixed-window counter shared by every instance behind the
// same Redis. It fails open when Redis is unreachable.
type RedisLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
	logger *zap.SugaredLogger
}

func NewRedisLimiter(client *redis.Client, perMinute int, logger *zap.SugaredLogger) *RedisLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RedisLimiter{client: client, max: int64(perMinute), window: time.Minute, logger: logger}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	k := rateLimitKeyPrefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		l.logger.Warnw("rate limit counter unavailable", "err", err)
		return true
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			l.logger.Warnw("rate limit expire failed", "key", k, "err", err)
		}
	}
	return n <= l.max
}

// RateLimitMiddleware rejects callers over the limit with 429.
func RateLimitMiddleware(l Limiter, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.Allow(r.Context(), ip) {
				logger.Infow("rate limited", "remote", ip, "path", r.URL.Path)
				response.JSON(w, http.StatusTooManyRequests, nil, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
