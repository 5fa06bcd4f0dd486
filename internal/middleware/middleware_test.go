package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"linkrental/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetRentalBySlug(ctx context.Context, slug string) (*models.RentalRequest, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalRequest), args.Error(1)
}

func (m *MockCacheService) SetRentalBySlug(ctx context.Context, rental *models.RentalRequest, ttl time.Duration) error {
	return m.Called(ctx, rental, ttl).Error(0)
}

func (m *MockCacheService) DeleteRentalBySlug(ctx context.Context, slug string) error {
	return m.Called(ctx, slug).Error(0)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCacheService) Close() error {
	return m.Called().Error(0)
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func serve(mw echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := mw(okHandler)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		limited    bool
		err        error
		wantStatus int
	}{
		{"under limit", false, nil, http.StatusOK},
		{"over limit", true, nil, http.StatusTooManyRequests},
		{"counter store down", false, errors.New("redis down"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &MockCacheService{}
			cache.On("IsRateLimited", mock.Anything, "submit:203.0.113.7", 3, time.Minute).Return(tt.limited, tt.err)
			rl := NewRateLimitMiddleware(cache, 3, time.Minute, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/api/rental-requests", nil)
			req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
			rec := serve(rl.Limit("submit"), req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.limited {
				assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
			}
			cache.AssertExpectations(t)
		})
	}
}

func TestVersionHeader(t *testing.T) {
	vm := NewVersionMiddleware()

	rec := serve(vm.VersionHeader("v1"), httptest.NewRequest(http.MethodGet, "/api/", nil))

	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))
	assert.Equal(t, "Current stable API version", rec.Header().Get("X-API-Message"))
	assert.Empty(t, rec.Header().Get("X-API-Deprecated"))
}

func TestVersionHeader_Deprecated(t *testing.T) {
	vm := NewVersionMiddleware()
	sunset := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	vm.Deprecate("v1", sunset, "Moving to v2")

	rec := serve(vm.VersionHeader("v1"), httptest.NewRequest(http.MethodGet, "/api/", nil))

	assert.Equal(t, "true", rec.Header().Get("X-API-Deprecated"))
	assert.Equal(t, "2026-01-01T00:00:00Z", rec.Header().Get("X-API-Sunset"))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	rec := serve(RequestLogger(logger), httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/stats", fields["uri"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}
