package handlers

import (
	"net/http"
	"time"

	"github.com/amber-cafe/api/internal/repositories"
	"github.com/amber-cafe/api/internal/services"
)

var startTime = time.Now()

// HealthHandlers serves the liveness and readiness probes. The readiness
// probe walks the system service's dependency checks; liveness never touches
// any dependency.
type HealthHandlers struct {
	system services.SystemService
}

// NewHealthHandlers wires the health endpoints. A nil system service degrades
// the readiness probe to a static response, which keeps the router usable in
// tests that do not care about dependency probes.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{system: system}
}

type healthCheckPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	CheckedAt string `json:"checked_at,omitempty"`
}

type readinessPayload struct {
	Status      string                        `json:"status"`
	Uptime      string                        `json:"uptime"`
	GeneratedAt string                        `json:"generated_at,omitempty"`
	Checks      map[string]healthCheckPayload `json:"checks,omitempty"`
}

// Healthz reports process liveness only.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    repositories.HealthStatusOK,
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether the service's dependencies answer probes.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, readinessPayload{
			Status: repositories.HealthStatusOK,
			Uptime: time.Since(startTime).String(),
		})
		return
	}

	report, err := h.system.Health(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, readinessPayload{
			Status: repositories.HealthStatusDown,
			Uptime: time.Since(startTime).String(),
		})
		return
	}

	payload := readinessPayload{
		Status:      report.Status,
		Uptime:      time.Since(startTime).String(),
		GeneratedAt: formatTimestamp(report.GeneratedAt),
	}
	if len(report.Checks) > 0 {
		payload.Checks = make(map[string]healthCheckPayload, len(report.Checks))
		for name, check := range report.Checks {
			payload.Checks[name] = healthCheckPayload{
				Status:    check.Status,
				Detail:    check.Detail,
				Error:     check.Error,
				LatencyMS: check.LatencyMS,
				CheckedAt: formatTimestamp(check.CheckedAt),
			}
		}
	}

	status := http.StatusOK
	if report.Status == repositories.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, payload)
}
