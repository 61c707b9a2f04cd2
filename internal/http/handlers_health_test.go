package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLivenessRoutes(t *testing.T) {
	router := NewRouter(RouterServices{Logger: discardLogger()})

	tests := []struct {
		method   string
		path     string
		wantBody string
	}{
		{http.MethodGet, "/healthz", `{"status":"ok"}`},
		{http.MethodHead, "/healthz", ""},
		{http.MethodGet, "/health", `{"health":"Good"}`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestReadyz_NotMountedWithoutChecks(t *testing.T) {
	router := NewRouter(RouterServices{Logger: discardLogger()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadyz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp 10.0.0.5:6379: connection refused") }

	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus int
		wantBody   readyResponse
	}{
		{
			name:       "all healthy",
			checks:     map[string]CheckFunc{"postgres": ok, "redis": ok},
			wantStatus: http.StatusOK,
			wantBody:   readyResponse{Status: "ready", Checks: map[string]string{"postgres": "ok", "redis": "ok"}},
		},
		{
			name:       "redis down",
			checks:     map[string]CheckFunc{"postgres": ok, "redis": down},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   readyResponse{Status: "unavailable", Checks: map[string]string{"postgres": "ok", "redis": "unavailable"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(RouterServices{Readiness: tt.checks, Logger: discardLogger()})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "10.0.0.5", "check errors stay in the logs")

			var got readyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestReadyHandlers_TimeoutBoundsSlowChecks(t *testing.T) {
	h := &ReadyHandlers{
		Timeout: 20 * time.Millisecond,
		Logger:  discardLogger(),
		Checks: map[string]CheckFunc{
			"postgres": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}

	rec := httptest.NewRecorder()
	start := time.Now()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
