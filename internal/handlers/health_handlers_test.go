package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func callHealth(t *testing.T, handler echo.HandlerFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	require.NoError(t, handler(c))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthCheck(t *testing.T) {
	down := stubPinger{err: errors.New("connection refused")}

	tests := []struct {
		name       string
		db         Pinger
		redis      Pinger
		storage    Pinger
		wantCode   int
		wantStatus string
	}{
		{"all healthy", stubPinger{}, stubPinger{}, stubPinger{}, http.StatusOK, "healthy"},
		{"archive disabled", stubPinger{}, stubPinger{}, nil, http.StatusOK, "healthy"},
		{"cache down", stubPinger{}, down, stubPinger{}, http.StatusOK, "degraded"},
		{"database down", down, stubPinger{}, stubPinger{}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
			h := NewHealthHandlers(tt.db, tt.redis, tt.storage, clock, "test")
			clock.Advance(90 * time.Second)

			rec, body := callHealth(t, h.HealthCheck)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, "1m30s", body["uptime"])
			assert.Equal(t, "test", body["version"])
		})
	}
}

func TestHealthCheck_DisabledBackend(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewHealthHandlers(stubPinger{}, stubPinger{}, nil, clock, "test")

	_, body := callHealth(t, h.HealthCheck)

	services := body["services"].(map[string]interface{})
	assert.Equal(t, "disabled", services["storage"])
	assert.Equal(t, "healthy", services["database"])
}

func TestReadinessCheck(t *testing.T) {
	clock := clockwork.NewFakeClock()

	rec, body := callHealth(t, NewHealthHandlers(stubPinger{}, nil, nil, clock, "test").ReadinessCheck)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])

	rec, body = callHealth(t, NewHealthHandlers(stubPinger{err: errors.New("down")}, nil, nil, clock, "test").ReadinessCheck)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])
}

func TestLivenessCheck(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	h := NewHealthHandlers(nil, nil, nil, clock, "test")

	rec, body := callHealth(t, h.LivenessCheck)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-03-01T12:00:00Z", body["timestamp"])
}
