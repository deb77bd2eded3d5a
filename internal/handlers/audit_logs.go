package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/platform/auth"
	"github.com/amber-cafe/api/internal/platform/httpx"
	"github.com/amber-cafe/api/internal/services"
)

const (
	defaultAuditLogPageSize = 50
	maxAuditLogPageSize     = 200
)

// AuditLogHandlers serves the cross-order audit trail. Manager only; the
// per-order trail lives under /orders/{orderID}/audit-logs.
type AuditLogHandlers struct {
	authn *auth.Authenticator
	audit services.AuditLogService
}

// NewAuditLogHandlers constructs a new AuditLogHandlers instance.
func NewAuditLogHandlers(authn *auth.Authenticator, audit services.AuditLogService) *AuditLogHandlers {
	return &AuditLogHandlers{
		authn: authn,
		audit: audit,
	}
}

// Routes registers the /audit-logs endpoints.
func (h *AuditLogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireManager())
	}
	r.Get("/", h.listAuditLogs)
}

func (h *AuditLogHandlers) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.audit == nil {
		httpx.WriteError(ctx, w, httpx.NewError("audit_service_unavailable", "audit log service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultAuditLogPageSize, maxAuditLogPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	page, err := h.audit.List(ctx, services.AuditLogListFilter{
		OrderID: strings.TrimSpace(query.Get("order_id")),
		Action:  domain.AuditAction(strings.ToUpper(strings.TrimSpace(query.Get("action")))),
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]auditLogPayload, 0, len(page.Items))
	for _, entry := range page.Items {
		items = append(items, buildAuditLogPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, auditLogListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}
