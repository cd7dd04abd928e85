package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

type probeStatus string

const (
	probeUp   probeStatus = "up"
	probeDown probeStatus = "down"
)

type healthResponse struct {
	Status    probeStatus            `json:"status"`
	Service   string                 `json:"service"`
	CheckedAt time.Time              `json:"checked_at"`
	Checks    map[string]probeResult `json:"checks"`
}

type probeResult struct {
	Status    probeStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	LatencyMs int64       `json:"latency_ms"`
}

type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// pingHandler is the liveness probe: the process is up and serving.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler is the readiness probe: it pings postgres, since every
// request path writes through it.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)

	dbCheck := probeResult{
		Status:    probeUp,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		dbCheck.Status = probeDown
		dbCheck.Error = err.Error()
	}

	resp := healthResponse{
		Status:    dbCheck.Status,
		Service:   "sos-checkout",
		CheckedAt: time.Now().UTC(),
		Checks:    map[string]probeResult{"postgres": dbCheck},
	}

	statusCode := http.StatusOK
	if dbCheck.Status == probeDown {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
