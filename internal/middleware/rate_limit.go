package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/socialgraph/backend/internal/metrics"
	"golang.org/x/time/rate"
)

// RedisRateLimiterStore is a fixed-window echo RateLimiterStore shared by
// every API instance through Redis. Redis failures let the request through.
type RedisRateLimiterStore struct {
	client  redis.UniversalClient
	limit   int64
	window  time.Duration
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewRedisRateLimiterStore(client redis.UniversalClient, perMinute int, logger *slog.Logger) *RedisRateLimiterStore {
	return &RedisRateLimiterStore{
		client:  client,
		limit:   int64(perMinute),
		window:  time.Minute,
		timeout: 200 * time.Millisecond,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *RedisRateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := windowKey(identifier, s.now(), s.window)
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, s.window)
		return nil
	})
	if err != nil {
		s.logger.Warn("rate limiter unavailable, allowing request", "error", err)
		return true, nil
	}
	return incr.Val() <= s.limit, nil
}

func windowKey(identifier string, now time.Time, window time.Duration) string {
	return fmt.Sprintf("ratelimit:%s:%s", identifier, strconv.FormatInt(now.UnixNano()/int64(window), 10))
}

// NewMemoryRateLimiterStore is used when no Redis is configured.
func NewMemoryRateLimiterStore(perMinute int) echomw.RateLimiterStore {
	return echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
}

// RateLimit limits requests per client IP using store.
func RateLimit(store echomw.RateLimiterStore, m *metrics.Metrics) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			m.RateLimitedTotal.Inc()
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}
