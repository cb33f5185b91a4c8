package guard

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/gatehouse-http/gatehouse/pkg/common"
	"github.com/gatehouse-http/gatehouse/pkg/pipeline"
)

// UberRateLimiter implements common.RateLimiter using Uber's ratelimit
// library (leaky bucket), one limiter per key and rate.
type UberRateLimiter struct {
	limiters sync.Map // map[string]ratelimit.Limiter
	mu       sync.Mutex
}

// NewUberRateLimiter creates a new rate limiter using Uber's ratelimit library.
func NewUberRateLimiter() *UberRateLimiter {
	return &UberRateLimiter{}
}

func (u *UberRateLimiter) getLimiter(key string, rps int) ratelimit.Limiter {
	compositeKey := fmt.Sprintf("%s-%d", key, rps)

	if limiter, ok := u.limiters.Load(compositeKey); ok {
		return limiter.(ratelimit.Limiter)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if limiter, ok := u.limiters.Load(compositeKey); ok {
		return limiter.(ratelimit.Limiter)
	}

	limiter := ratelimit.New(rps)
	u.limiters.Store(compositeKey, limiter)
	return limiter
}

// Allow implements common.RateLimiter with the leaky bucket algorithm.
// The limit and window are converted to requests per second; remaining and
// reset are leaky-bucket approximations derived from the wait time.
func (u *UberRateLimiter) Allow(key string, limit int, window time.Duration) (bool, int, time.Duration) {
	rps := int(float64(limit) / window.Seconds())
	if rps < 1 {
		rps = 1
	}

	limiter := u.getLimiter(key, rps)

	now := time.Now()
	nextAvailable := limiter.Take()
	waitTime := nextAvailable.Sub(now)

	remaining := int(float64(limit) * (1 - waitTime.Seconds()/window.Seconds()))
	if remaining < 0 {
		remaining = 0
	}

	// A negligible wait means the bucket had room; anything longer means the
	// request arrived faster than the configured rate.
	allowed := waitTime <= time.Millisecond

	reset := waitTime
	if reset < 0 {
		reset = 0
	}

	return allowed, remaining, reset
}

var _ common.RateLimiter = (*UberRateLimiter)(nil)

// RateLimit creates a guard that enforces the configured rate limit. An
// over-limit request is Denied with 429 and Retry-After/X-RateLimit headers;
// the refusal stops the route search like any other denial.
func RateLimit(config *common.RateLimitConfig, limiter common.RateLimiter, logger *zap.Logger) pipeline.Guard {
	if config == nil {
		return func(next pipeline.Handler) pipeline.Handler { return next }
	}
	if limiter == nil {
		panic("guard: RateLimit requires a non-nil RateLimiter")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next pipeline.Handler) pipeline.Handler {
		return func(r *http.Request) (pipeline.Outcome, error) {
			key := r.RemoteAddr
			if config.KeyExtractor != nil {
				key = config.KeyExtractor(r)
			}
			bucketKey := config.BucketName + ":" + key

			allowed, remaining, reset := limiter.Allow(bucketKey, config.Limit, config.Window)
			if allowed {
				return next(r)
			}

			retryAfter := int64(reset.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			logger.Warn("rate limit exceeded",
				zap.String("bucket", config.BucketName),
				zap.String("key", key),
				zap.Int("limit", config.Limit),
				zap.Duration("window", config.Window),
				zap.Int("remaining", remaining),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)

			resp := pipeline.Text(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests)).
				WithHeader("Retry-After", strconv.FormatInt(retryAfter, 10)).
				WithHeader("X-RateLimit-Limit", strconv.Itoa(config.Limit)).
				WithHeader("X-RateLimit-Remaining", strconv.Itoa(remaining))
			return pipeline.Denied(resp), nil
		}
	}
}
