package middleware

import (
	"time"

	"linkrental/internal/caching"
	"linkrental/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RateLimitMiddleware caps how often one client may hit a route, counting in Redis
type RateLimitMiddleware struct {
	cacheSvc caching.CacheService
	limit    int
	window   time.Duration
	logger   *zap.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware instance
func NewRateLimitMiddleware(cacheSvc caching.CacheService, limit int, window time.Duration, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		cacheSvc: cacheSvc,
		limit:    limit,
		window:   window,
		logger:   logger,
	}
}

// Limit rejects requests beyond the limit per client IP within scope. When the counter store
// is unreachable the request is let through.
func (m *RateLimitMiddleware) Limit(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := scope + ":" + c.RealIP()
			limited, err := m.cacheSvc.IsRateLimited(c.Request().Context(), key, m.limit, m.window)
			if err != nil {
				m.logger.Warn("Rate limit check failed, allowing request", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			if limited {
				m.logger.Info("Rate limit exceeded", zap.String("key", key))
				return common.SendRateLimitedError(c)
			}
			return next(c)
		}
	}
}
