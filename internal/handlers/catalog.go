package handlers

import (
	"context"
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
	defaultCatalogPageSize = 50
	maxCatalogPageSize     = 200
	maxCatalogBodySize     = 32 * 1024
)

// CatalogHandlers exposes the menu item and deal endpoints. Reads require an
// authenticated staff member; writes require the manager role.
type CatalogHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
}

// NewCatalogHandlers constructs a new CatalogHandlers instance.
func NewCatalogHandlers(authn *auth.Authenticator, catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{
		authn:   authn,
		catalog: catalog,
	}
}

// MenuItemRoutes registers the /menu-items endpoints.
func (h *CatalogHandlers) MenuItemRoutes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.listMenuItems)
	r.Get("/{itemID}", h.getMenuItem)
	r.Group(func(g chi.Router) {
		if h.authn != nil {
			g.Use(h.authn.RequireManager())
		}
		g.Post("/", h.createMenuItem)
		g.Patch("/{itemID}", h.updateMenuItem)
		g.Delete("/{itemID}", h.deleteMenuItem)
	})
}

// DealRoutes registers the /deals endpoints.
func (h *CatalogHandlers) DealRoutes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.listDeals)
	r.Get("/{dealID}", h.getDeal)
	r.Group(func(g chi.Router) {
		if h.authn != nil {
			g.Use(h.authn.RequireManager())
		}
		g.Post("/", h.createDeal)
		g.Patch("/{dealID}", h.updateDeal)
		g.Delete("/{dealID}", h.deleteDeal)
	})
}

// Request payloads -----------------------------------------------------------

type menuItemRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Available   *bool   `json:"available"`
}

type dealItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type dealRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Items       []dealItemRequest `json:"items"`
	Available   *bool             `json:"available"`
}

// Menu item handlers ---------------------------------------------------------

func (h *CatalogHandlers) createMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	var req menuItemRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogBodySize, &req) {
		return
	}

	item, err := h.catalog.CreateMenuItem(ctx, services.UpsertMenuItemCommand{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Available:   req.Available,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, menuItemResponse{MenuItem: buildMenuItemPayload(item)})
}

func (h *CatalogHandlers) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if itemID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "menu item id is required", http.StatusBadRequest))
		return
	}

	var req menuItemRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogBodySize, &req) {
		return
	}

	item, err := h.catalog.UpdateMenuItem(ctx, services.UpsertMenuItemCommand{
		ID:          itemID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Available:   req.Available,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, menuItemResponse{MenuItem: buildMenuItemPayload(item)})
}

func (h *CatalogHandlers) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if itemID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "menu item id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.DeleteMenuItem(ctx, itemID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) getMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if itemID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "menu item id is required", http.StatusBadRequest))
		return
	}

	item, err := h.catalog.GetMenuItem(ctx, itemID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, menuItemResponse{MenuItem: buildMenuItemPayload(item)})
}

func (h *CatalogHandlers) listMenuItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultCatalogPageSize, maxCatalogPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	page, err := h.catalog.ListMenuItems(ctx, services.MenuItemListFilter{
		Category:      strings.TrimSpace(query.Get("category")),
		AvailableOnly: query.Get("available") == "true",
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]menuItemPayload, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, buildMenuItemPayload(item))
	}
	writeJSONResponse(w, http.StatusOK, menuItemListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

// Deal handlers --------------------------------------------------------------

func (h *CatalogHandlers) createDeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	var req dealRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogBodySize, &req) {
		return
	}

	deal, err := h.catalog.CreateDeal(ctx, buildDealCommand("", req))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, dealResponse{Deal: buildDealPayload(deal)})
}

func (h *CatalogHandlers) updateDeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	dealID := strings.TrimSpace(chi.URLParam(r, "dealID"))
	if dealID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "deal id is required", http.StatusBadRequest))
		return
	}

	var req dealRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogBodySize, &req) {
		return
	}

	deal, err := h.catalog.UpdateDeal(ctx, buildDealCommand(dealID, req))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, dealResponse{Deal: buildDealPayload(deal)})
}

func (h *CatalogHandlers) deleteDeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	dealID := strings.TrimSpace(chi.URLParam(r, "dealID"))
	if dealID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "deal id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.DeleteDeal(ctx, dealID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) getDeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	dealID := strings.TrimSpace(chi.URLParam(r, "dealID"))
	if dealID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "deal id is required", http.StatusBadRequest))
		return
	}

	deal, err := h.catalog.GetDeal(ctx, dealID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, dealResponse{Deal: buildDealPayload(deal)})
}

func (h *CatalogHandlers) listDeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.serviceReady(ctx, w) {
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultCatalogPageSize, maxCatalogPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	page, err := h.catalog.ListDeals(ctx, services.DealListFilter{
		AvailableOnly: query.Get("available") == "true",
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	deals := make([]dealPayload, 0, len(page.Items))
	for _, deal := range page.Items {
		deals = append(deals, buildDealPayload(deal))
	}
	writeJSONResponse(w, http.StatusOK, dealListResponse{
		Items:         deals,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *CatalogHandlers) serviceReady(ctx context.Context, w http.ResponseWriter) bool {
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func buildDealCommand(dealID string, req dealRequest) services.UpsertDealCommand {
	cmd := services.UpsertDealCommand{
		ID:          dealID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Available:   req.Available,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.DealItemInput{
			MenuItemID: strings.TrimSpace(item.MenuItemID),
			Quantity:   item.Quantity,
		})
	}
	return cmd
}

// Response payloads ----------------------------------------------------------

type menuItemResponse struct {
	MenuItem menuItemPayload `json:"menu_item"`
}

type menuItemListResponse struct {
	Items         []menuItemPayload `json:"items"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type menuItemPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

type dealResponse struct {
	Deal dealPayload `json:"deal"`
}

type dealListResponse struct {
	Items         []dealPayload `json:"items"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type dealComponentPayload struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
}

type dealPayload struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Price       float64                `json:"price"`
	Items       []dealComponentPayload `json:"items"`
	Available   bool                   `json:"available"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at,omitempty"`
}

func buildMenuItemPayload(item domain.MenuItem) menuItemPayload {
	return menuItemPayload{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		Price:       item.Price,
		Available:   item.Available,
		CreatedAt:   formatTimestamp(item.CreatedAt),
		UpdatedAt:   formatTimestamp(item.UpdatedAt),
	}
}

func buildDealPayload(deal domain.Deal) dealPayload {
	items := make([]dealComponentPayload, 0, len(deal.Items))
	for _, item := range deal.Items {
		items = append(items, dealComponentPayload{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
		})
	}
	return dealPayload{
		ID:          deal.ID,
		Name:        deal.Name,
		Description: deal.Description,
		Price:       deal.Price,
		Items:       items,
		Available:   deal.Available,
		CreatedAt:   formatTimestamp(deal.CreatedAt),
		UpdatedAt:   formatTimestamp(deal.UpdatedAt),
	}
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_entry_not_found", "catalog entry not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogDependency):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_dependency_unavailable", "a downstream dependency failed", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}
