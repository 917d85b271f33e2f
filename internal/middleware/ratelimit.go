package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims, counts and records one hit in a single step.
// Scores are unix milliseconds. It returns {allowed, count, oldest}.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])

	redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
	local count = redis.call("ZCARD", key)
	if count >= limit then
		local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
		return {0, count, tonumber(oldest[2]) or now}
	end

	redis.call("ZADD", key, now, ARGV[4])
	redis.call("PEXPIRE", key, window)
	return {1, count + 1, now}
`)

// RateLimiter is a sliding window limiter per client IP and route. Windows live
// in Redis sorted sets, or in process memory without a Redis client.
type RateLimiter struct {
	redis     *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
	proxies   *TrustedProxies
	now       func() time.Time
	log       *logger.Logger

	mu        sync.Mutex
	local     map[string][]time.Time
	lastSweep time.Time
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration, proxies *TrustedProxies, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		redis:     redisClient,
		limit:     limit,
		window:    window,
		keyPrefix: "ratelimit:",
		proxies:   proxies,
		now:       time.Now,
		log:       log.With("ratelimit"),
		local:     make(map[string][]time.Time),
	}
}

func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyPrefix + routeKey(r.URL.Path) + ":" + rl.proxies.ClientIP(r)

		allowed, remaining, resetTime := rl.allowRequest(r.Context(), key)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			rl.reject(w, key, resetTime)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// Allow counts one hit against an arbitrary subject, such as the phone number
// of a login attempt, and reports whether it fits the window.
func (rl *RateLimiter) Allow(ctx context.Context, scope, subject string) (bool, time.Time) {
	allowed, _, resetTime := rl.allowRequest(ctx, rl.keyPrefix+scope+":"+subject)
	return allowed, resetTime
}

// reject writes the 429 response for a denied hit.
func (rl *RateLimiter) reject(w http.ResponseWriter, key string, resetTime time.Time) {
	retry := int(resetTime.Sub(rl.now()).Seconds())
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	rl.log.Warn("Rate limit exceeded for %s", key)
	writeError(w, http.StatusTooManyRequests, "Too many requests")
}

// TooManyRequests writes the same 429 response Limit uses.
func (rl *RateLimiter) TooManyRequests(w http.ResponseWriter, scope string, resetTime time.Time) {
	rl.reject(w, rl.keyPrefix+scope, resetTime)
}

// routeKey is the first path segment, so /login and /login/ share a window.
func routeKey(path string) string {
	path = strings.Trim(path, "/")
	first, _, _ := strings.Cut(path, "/")
	return first
}

func (rl *RateLimiter) allowRequest(ctx context.Context, key string) (bool, int, time.Time) {
	if rl.redis == nil {
		return rl.allowLocal(key)
	}

	now := rl.now()
	res, err := slidingWindowScript.Run(ctx, rl.redis, []string{key},
		now.UnixMilli(), rl.window.Milliseconds(), rl.limit, uuid.NewString()).Int64Slice()
	if err != nil || len(res) != 3 {
		rl.log.Error("Rate limiter unavailable, allowing request: %v", err)
		return true, rl.limit, now.Add(rl.window)
	}

	if res[0] == 0 {
		return false, 0, time.UnixMilli(res[2]).Add(rl.window)
	}
	return true, rl.limit - int(res[1]), now.Add(rl.window)
}

func (rl *RateLimiter) allowLocal(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.window)
	rl.sweepLocal(now, windowStart)

	hits := rl.local[key][:0]
	for _, at := range rl.local[key] {
		if at.After(windowStart) {
			hits = append(hits, at)
		}
	}

	if len(hits) >= rl.limit {
		rl.local[key] = hits
		return false, 0, hits[0].Add(rl.window)
	}

	rl.local[key] = append(hits, now)
	return true, rl.limit - len(hits) - 1, now.Add(rl.window)
}

// sweepLocal drops keys with no hit inside the window, at most once per window.
// Callers hold rl.mu.
func (rl *RateLimiter) sweepLocal(now, windowStart time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now

	for key, hits := range rl.local {
		if len(hits) == 0 || !hits[len(hits)-1].After(windowStart) {
			delete(rl.local, key)
		}
	}
}
