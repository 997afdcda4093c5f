package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

const healthCheckTimeout = 2 * time.Second

var errNoDatabase = errors.New("database not configured")

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CheckFunc reports whether one dependency can serve traffic.
type CheckFunc func(ctx context.Context) error

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	CheckedAt  time.Time    `json:"checked_at"`
	DurationMs int64        `json:"duration_ms"`
}

type HealthHandler struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewHealthHandler always checks the payment store as "postgres"; extra
// components come from AddCheck.
func NewHealthHandler(db Pinger) *HealthHandler {
	h := &HealthHandler{checks: map[string]CheckFunc{}, timeout: healthCheckTimeout}
	h.AddCheck("postgres", func(ctx context.Context) error {
		if db == nil {
			return errNoDatabase
		}
		return db.PingContext(ctx)
	})
	return h
}

func (h *HealthHandler) AddCheck(name string, check CheckFunc) {
	h.checks[name] = check
}

// Ping reports liveness only.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Health runs every check concurrently under one deadline. Any failure makes
// the service unhealthy with 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:     HealthHealthy,
		Components: make(map[string]CheckEntry, len(h.checks)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			entry := runCheck(ctx, check)

			mu.Lock()
			defer mu.Unlock()
			resp.Components[name] = entry
			if entry.Status == HealthUnhealthy {
				resp.Status = HealthUnhealthy
			}
		}(name, check)
	}
	wg.Wait()
	resp.CheckedAt = time.Now()

	status := http.StatusOK
	if resp.Status == HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, status, resp)
}

func runCheck(ctx context.Context, check CheckFunc) CheckEntry {
	start := time.Now()
	err := check(ctx)
	entry := CheckEntry{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
	}
	return entry
}

func writeHealthJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
