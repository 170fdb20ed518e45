package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Staleness window after which a silent tick loop marks the bot degraded.
const tickStaleAfter = 5 * time.Minute

type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	lastTick  time.Time
	lastMid   float64
	lastError string
}

type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LastTick  time.Time `json:"last_tick"`
	LastMid   float64   `json:"last_mid"`
	Uptime    string    `json:"uptime"`
	LastError string    `json:"last_error,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// Tick records a completed decision tick.
func (h *HealthChecker) Tick(mid float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTick = time.Now()
	h.lastMid = mid
	h.lastError = ""
}

// Fail records a tick that ended in an error.
func (h *HealthChecker) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastError = err.Error()
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if h.lastTick.IsZero() || time.Since(h.lastTick) > tickStaleAfter {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	health := HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		LastTick:  h.lastTick,
		LastMid:   h.lastMid,
		Uptime:    time.Since(h.startTime).String(),
		LastError: h.lastError,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// Serve exposes /metrics and /healthz on addr in a background goroutine.
func Serve(addr string, health *HealthChecker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewMetricsHandler())
	mux.Handle("/healthz", health)

	srv := &http.Server{Addr: addr, Handler: mux}
	go srv.ListenAndServe()
	return srv
}
