package httpx

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultReadyTimeout = 2 * time.Second

// CheckFunc checks one backing dependency.
type CheckFunc func(ctx context.Context) error

// ReadyHandlers answers readiness requests by running every check in parallel.
type ReadyHandlers struct {
	Checks  map[string]CheckFunc
	Timeout time.Duration
	Logger  *slog.Logger
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Ready returns 200 when every dependency answers and 503 otherwise. Failure details
// are logged; the body only names which dependency is down.
func (h *ReadyHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.Checks))
		healthy = true
	)

	var g errgroup.Group
	for _, name := range slices.Sorted(maps.Keys(h.Checks)) {
		check := h.Checks[name]
		g.Go(func() error {
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				results[name] = "unavailable"
				h.logger().WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
				return nil
			}
			results[name] = "ok"
			return nil
		})
	}
	_ = g.Wait()

	if !healthy {
		WriteJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "unavailable", Checks: results})
		return
	}
	WriteJSON(w, http.StatusOK, readyResponse{Status: "ready", Checks: results})
}

func (h *ReadyHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
