package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/amber-cafe/api/internal/platform/requestctx"
)

// Error is the JSON error envelope every API endpoint returns on failure.
// Code is a stable machine-readable identifier; Message is safe to show to
// operators but never echoes raw client input.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

// NewError builds an Error, clamping code and message to sane lengths so a
// single oversized value cannot bloat log pipelines downstream.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    clamp(code, 80),
		Message: clamp(message, 512),
		Status:  status,
	}
}

// WithDetails attaches extra JSON-serialisable fields to the envelope.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(details))
	for k, v := range details {
		merged[k] = v
	}
	e.Details = merged
	return e
}

type errorEnvelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// WriteError serialises the envelope, stamping the request and trace
// identifiers from the context when available.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	envelope := errorEnvelope{
		Error:     err.Code,
		Message:   err.Message,
		Status:    status,
		RequestID: clamp(middleware.GetReqID(ctx), 80),
		TraceID:   clamp(requestctx.TraceID(ctx), 64),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if len(err.Details) == 0 {
		_ = json.NewEncoder(w).Encode(envelope)
		return
	}

	// Flatten details alongside the envelope fields.
	payload := map[string]any{
		"error":   envelope.Error,
		"message": envelope.Message,
		"status":  envelope.Status,
	}
	if envelope.RequestID != "" {
		payload["request_id"] = envelope.RequestID
	}
	if envelope.TraceID != "" {
		payload["trace_id"] = envelope.TraceID
	}
	for k, v := range err.Details {
		payload[k] = v
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func clamp(value string, limit int) string {
	value = strings.NewReplacer("\n", " ", "\r", " ").Replace(value)
	value = strings.TrimSpace(value)
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}
