package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/platform/auth"
	"github.com/amber-cafe/api/internal/platform/httpx"
	"github.com/amber-cafe/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxOrderBodySize     = 64 * 1024
)

// OrderHandlers exposes the order endpoints for authenticated staff.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
	audit  services.AuditLogService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, audit services.AuditLogService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
		audit:  audit,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Patch("/{orderID}", h.updateOrder)
	r.Delete("/{orderID}", h.deleteOrder)
	r.Post("/{orderID}:status", h.transitionOrder)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Get("/{orderID}/audit-logs", h.listOrderAuditLogs)
}

// Request payloads -----------------------------------------------------------

type orderLineRequest struct {
	Kind     string `json:"kind"`
	RefID    string `json:"ref_id"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	Type            string             `json:"type"`
	Lines           []orderLineRequest `json:"lines"`
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	DeliveryAddress string             `json:"delivery_address"`
	Discount        float64            `json:"discount"`
	DeliveryCharges float64            `json:"delivery_charges"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentStatus   string             `json:"payment_status"`
	Note            string             `json:"note"`
}

type updateOrderRequest struct {
	Type            *string            `json:"type"`
	Lines           []orderLineRequest `json:"lines"`
	CustomerName    *string            `json:"customer_name"`
	CustomerPhone   *string            `json:"customer_phone"`
	DeliveryAddress *string            `json:"delivery_address"`
	Discount        *float64           `json:"discount"`
	DeliveryCharges *float64           `json:"delivery_charges"`
	PaymentMethod   *string            `json:"payment_method"`
	PaymentStatus   *string            `json:"payment_status"`
	Note            *string            `json:"note"`

	hasLines bool
}

// UnmarshalJSON distinguishes an absent "lines" key from an explicit empty array.
func (r *updateOrderRequest) UnmarshalJSON(data []byte) error {
	type alias updateOrderRequest
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*r = updateOrderRequest(decoded)
	_, r.hasLines = keys["lines"]
	return nil
}

type transitionOrderRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// Handlers -------------------------------------------------------------------

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireService(ctx, w)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeJSONBody(ctx, w, r, maxOrderBodySize, &req) {
		return
	}

	cmd := services.CreateOrderCommand{
		Type:            domain.OrderType(strings.ToLower(strings.TrimSpace(req.Type))),
		Lines:           buildLineInputs(req.Lines),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		Discount:        req.Discount,
		DeliveryCharges: req.DeliveryCharges,
		PaymentMethod:   domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		PaymentStatus:   domain.PaymentStatus(strings.ToLower(strings.TrimSpace(req.PaymentStatus))),
		Note:            req.Note,
		Actor:           identity.UID,
		ActorRole:       identity.Role,
	}

	order, err := h.orders.Create(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireService(ctx, w); !ok {
		return
	}

	query := r.URL.Query()

	filter := services.OrderListFilter{
		Type:          domain.OrderType(strings.ToLower(strings.TrimSpace(query.Get("type")))),
		PaymentStatus: domain.PaymentStatus(strings.ToLower(strings.TrimSpace(query.Get("payment_status")))),
	}
	for _, raw := range query["status"] {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
				filter.Status = append(filter.Status, domain.OrderStatus(trimmed))
			}
		}
	}

	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.DateRange.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.DateRange.To = &ts
	}

	pageSize, err := parsePageSize(query.Get("page_size"), defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}
	filter.Pagination = services.Pagination{
		PageSize:  pageSize,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}

	page, err := h.orders.List(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireService(ctx, w); !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireService(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if !decodeJSONBody(ctx, w, r, maxOrderBodySize, &req) {
		return
	}

	cmd := services.UpdateOrderCommand{
		OrderID:         orderID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		Discount:        req.Discount,
		DeliveryCharges: req.DeliveryCharges,
		Note:            req.Note,
		Actor:           identity.UID,
		ActorRole:       identity.Role,
	}
	if req.Type != nil {
		parsed := domain.OrderType(strings.ToLower(strings.TrimSpace(*req.Type)))
		cmd.Type = &parsed
	}
	if req.PaymentMethod != nil {
		parsed := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(*req.PaymentMethod)))
		cmd.PaymentMethod = &parsed
	}
	if req.PaymentStatus != nil {
		parsed := domain.PaymentStatus(strings.ToLower(strings.TrimSpace(*req.PaymentStatus)))
		cmd.PaymentStatus = &parsed
	}
	if req.hasLines {
		cmd.HasLines = true
		cmd.Lines = buildLineInputs(req.Lines)
	}

	order, err := h.orders.Update(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireService(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req transitionOrderRequest
	if !decodeJSONBody(ctx, w, r, maxOrderBodySize, &req) {
		return
	}
	target := strings.ToLower(strings.TrimSpace(req.Status))
	if target == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	result, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID:   orderID,
		Target:    domain.OrderStatus(target),
		Reason:    strings.TrimSpace(req.Reason),
		Actor:     identity.UID,
		ActorRole: identity.Role,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, statusChangeResponse{
		Order:       buildOrderPayload(result.Order),
		WasOverride: result.WasOverride,
		Event:       string(result.Event),
	})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireService(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(ctx, w, err)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID:   orderID,
		Reason:    strings.TrimSpace(req.Reason),
		Actor:     identity.UID,
		ActorRole: identity.Role,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireService(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	if err := h.orders.Delete(ctx, services.DeleteOrderCommand{
		OrderID:   orderID,
		Actor:     identity.UID,
		ActorRole: identity.Role,
	}); err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandlers) listOrderAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireService(ctx, w); !ok {
		return
	}
	if h.audit == nil {
		httpx.WriteError(ctx, w, httpx.NewError("audit_service_unavailable", "audit log service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	page, err := h.audit.List(ctx, services.AuditLogListFilter{
		OrderID: orderID,
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

// requireService resolves the caller identity and checks the order service is
// wired. It writes the error response itself when either is missing.
func (h *OrderHandlers) requireService(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func requireOrderID(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return "", false
	}
	return orderID, true
}

func buildLineInputs(lines []orderLineRequest) []services.OrderLineInput {
	if len(lines) == 0 {
		return nil
	}
	inputs := make([]services.OrderLineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, services.OrderLineInput{
			Kind:     domain.LineKind(strings.ToLower(strings.TrimSpace(line.Kind))),
			RefID:    strings.TrimSpace(line.RefID),
			Quantity: line.Quantity,
		})
	}
	return inputs
}

// Response payloads ----------------------------------------------------------

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID            string  `json:"id"`
	OrderNumber   string  `json:"order_number"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Total         float64 `json:"total"`
	PaymentStatus string  `json:"payment_status"`
	CreatedAt     string  `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type statusChangeResponse struct {
	Order       orderPayload `json:"order"`
	WasOverride bool         `json:"was_override"`
	Event       string       `json:"event"`
}

type orderLinePayload struct {
	Kind      string  `json:"kind"`
	RefID     string  `json:"ref_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"order_number"`
	Type            string             `json:"type"`
	Status          string             `json:"status"`
	Lines           []orderLinePayload `json:"lines"`
	CustomerName    string             `json:"customer_name,omitempty"`
	CustomerPhone   string             `json:"customer_phone,omitempty"`
	DeliveryAddress string             `json:"delivery_address,omitempty"`
	Subtotal        float64            `json:"subtotal"`
	Discount        float64            `json:"discount"`
	DeliveryCharges float64            `json:"delivery_charges"`
	Total           float64            `json:"total"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentStatus   string             `json:"payment_status"`
	Note            string             `json:"note,omitempty"`
	CreatedBy       string             `json:"created_by,omitempty"`
	UpdatedBy       string             `json:"updated_by,omitempty"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at,omitempty"`
	CancelledAt     string             `json:"cancelled_at,omitempty"`
	CancelReason    string             `json:"cancel_reason,omitempty"`
}

type auditLogListResponse struct {
	Items         []auditLogPayload `json:"items"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type auditLogPayload struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	OrderID     string         `json:"order_id"`
	OrderNumber string         `json:"order_number,omitempty"`
	Actor       string         `json:"actor"`
	ActorRole   string         `json:"actor_role,omitempty"`
	FromStatus  string         `json:"from_status,omitempty"`
	ToStatus    string         `json:"to_status,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

func buildOrderSummary(order domain.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Type:          string(order.Type),
		Status:        string(order.Status),
		Total:         order.Total,
		PaymentStatus: string(order.PaymentStatus),
		CreatedAt:     formatTimestamp(order.CreatedAt),
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	lines := make([]orderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLinePayload{
			Kind:      string(line.Kind),
			RefID:     line.RefID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}
	payload := orderPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Type:            string(order.Type),
		Status:          string(order.Status),
		Lines:           lines,
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		DeliveryAddress: order.DeliveryAddress,
		Subtotal:        order.Subtotal,
		Discount:        order.Discount,
		DeliveryCharges: order.DeliveryCharges,
		Total:           order.Total,
		PaymentMethod:   string(order.PaymentMethod),
		PaymentStatus:   string(order.PaymentStatus),
		Note:            order.Note,
		CreatedBy:       order.CreatedBy,
		UpdatedBy:       order.UpdatedBy,
		CreatedAt:       formatTimestamp(order.CreatedAt),
		UpdatedAt:       formatTimestamp(order.UpdatedAt),
		CancelReason:    order.CancelReason,
	}
	if order.CancelledAt != nil {
		payload.CancelledAt = formatTimestamp(*order.CancelledAt)
	}
	return payload
}

func buildAuditLogPayload(entry domain.AuditLogEntry) auditLogPayload {
	return auditLogPayload{
		ID:          entry.ID,
		Action:      string(entry.Action),
		OrderID:     entry.OrderID,
		OrderNumber: entry.OrderNumber,
		Actor:       entry.Actor,
		ActorRole:   entry.ActorRole,
		FromStatus:  string(entry.FromStatus),
		ToStatus:    string(entry.ToStatus),
		Reason:      entry.Reason,
		Details:     entry.Details,
		CreatedAt:   formatTimestamp(entry.CreatedAt),
	}
}

// Error mapping --------------------------------------------------------------

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderEditForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("order_edit_forbidden", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", err.Error(), http.StatusForbidden))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderDependency):
		httpx.WriteError(ctx, w, httpx.NewError("order_dependency_unavailable", "a downstream dependency failed", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

// decodeJSONBody reads and unmarshals a bounded request body. It writes the
// error response itself and reports success through the return value.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64, target any) bool {
	body, err := readLimitedBody(r, limit)
	if err != nil {
		writeBodyError(ctx, w, err)
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}
