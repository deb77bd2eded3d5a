package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/services"
)

type stubCatalogService struct {
	createItemFn func(context.Context, services.UpsertMenuItemCommand) (services.MenuItem, error)
	updateItemFn func(context.Context, services.UpsertMenuItemCommand) (services.MenuItem, error)
	deleteItemFn func(context.Context, string) error
	getItemFn    func(context.Context, string) (services.MenuItem, error)
	listItemsFn  func(context.Context, services.MenuItemListFilter) (domain.CursorPage[services.MenuItem], error)
	createDealFn func(context.Context, services.UpsertDealCommand) (services.Deal, error)
	updateDealFn func(context.Context, services.UpsertDealCommand) (services.Deal, error)
	deleteDealFn func(context.Context, string) error
	getDealFn    func(context.Context, string) (services.Deal, error)
	listDealsFn  func(context.Context, services.DealListFilter) (domain.CursorPage[services.Deal], error)
}

func (s *stubCatalogService) CreateMenuItem(ctx context.Context, cmd services.UpsertMenuItemCommand) (services.MenuItem, error) {
	if s.createItemFn != nil {
		return s.createItemFn(ctx, cmd)
	}
	return services.MenuItem{}, errors.New("not implemented")
}

func (s *stubCatalogService) UpdateMenuItem(ctx context.Context, cmd services.UpsertMenuItemCommand) (services.MenuItem, error) {
	if s.updateItemFn != nil {
		return s.updateItemFn(ctx, cmd)
	}
	return services.MenuItem{}, errors.New("not implemented")
}

func (s *stubCatalogService) DeleteMenuItem(ctx context.Context, itemID string) error {
	if s.deleteItemFn != nil {
		return s.deleteItemFn(ctx, itemID)
	}
	return errors.New("not implemented")
}

func (s *stubCatalogService) GetMenuItem(ctx context.Context, itemID string) (services.MenuItem, error) {
	if s.getItemFn != nil {
		return s.getItemFn(ctx, itemID)
	}
	return services.MenuItem{}, errors.New("not implemented")
}

func (s *stubCatalogService) ListMenuItems(ctx context.Context, filter services.MenuItemListFilter) (domain.CursorPage[services.MenuItem], error) {
	if s.listItemsFn != nil {
		return s.listItemsFn(ctx, filter)
	}
	return domain.CursorPage[services.MenuItem]{}, nil
}

func (s *stubCatalogService) CreateDeal(ctx context.Context, cmd services.UpsertDealCommand) (services.Deal, error) {
	if s.createDealFn != nil {
		return s.createDealFn(ctx, cmd)
	}
	return services.Deal{}, errors.New("not implemented")
}

func (s *stubCatalogService) UpdateDeal(ctx context.Context, cmd services.UpsertDealCommand) (services.Deal, error) {
	if s.updateDealFn != nil {
		return s.updateDealFn(ctx, cmd)
	}
	return services.Deal{}, errors.New("not implemented")
}

func (s *stubCatalogService) DeleteDeal(ctx context.Context, dealID string) error {
	if s.deleteDealFn != nil {
		return s.deleteDealFn(ctx, dealID)
	}
	return errors.New("not implemented")
}

func (s *stubCatalogService) GetDeal(ctx context.Context, dealID string) (services.Deal, error) {
	if s.getDealFn != nil {
		return s.getDealFn(ctx, dealID)
	}
	return services.Deal{}, errors.New("not implemented")
}

func (s *stubCatalogService) ListDeals(ctx context.Context, filter services.DealListFilter) (domain.CursorPage[services.Deal], error) {
	if s.listDealsFn != nil {
		return s.listDealsFn(ctx, filter)
	}
	return domain.CursorPage[services.Deal]{}, nil
}

func newCatalogRouter(service services.CatalogService) chi.Router {
	handler := NewCatalogHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/menu-items", handler.MenuItemRoutes)
	router.Route("/deals", handler.DealRoutes)
	return router
}

func TestCatalogHandlersCreateMenuItem(t *testing.T) {
	var captured services.UpsertMenuItemCommand
	service := &stubCatalogService{
		createItemFn: func(ctx context.Context, cmd services.UpsertMenuItemCommand) (services.MenuItem, error) {
			captured = cmd
			return services.MenuItem{ID: "itm_001", Name: cmd.Name, Price: cmd.Price, Available: true}, nil
		},
	}

	body := []byte(`{"name": "Classic Burger", "category": "mains", "price": 500}`)
	req := httptest.NewRequest(http.MethodPost, "/menu-items", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	newCatalogRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Name != "Classic Burger" || captured.Price != 500 {
		t.Fatalf("unexpected command: %#v", captured)
	}

	var resp menuItemResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.MenuItem.ID != "itm_001" {
		t.Fatalf("expected generated id in response, got %q", resp.MenuItem.ID)
	}
}

func TestCatalogHandlersCreateMenuItemValidationError(t *testing.T) {
	service := &stubCatalogService{
		createItemFn: func(ctx context.Context, cmd services.UpsertMenuItemCommand) (services.MenuItem, error) {
			return services.MenuItem{}, fmt.Errorf("%w: name is required", services.ErrCatalogInvalidInput)
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/menu-items", bytes.NewReader([]byte(`{"price": 10}`)))
	rr := httptest.NewRecorder()
	newCatalogRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCatalogHandlersListMenuItemsFilter(t *testing.T) {
	var captured services.MenuItemListFilter
	service := &stubCatalogService{
		listItemsFn: func(ctx context.Context, filter services.MenuItemListFilter) (domain.CursorPage[services.MenuItem], error) {
			captured = filter
			return domain.CursorPage[services.MenuItem]{Items: []services.MenuItem{{ID: "itm_001"}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/menu-items?category=mains&available=true&page_size=5", nil)
	rr := httptest.NewRecorder()
	newCatalogRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Category != "mains" || !captured.AvailableOnly || captured.Pagination.PageSize != 5 {
		t.Fatalf("unexpected filter: %#v", captured)
	}
}

func TestCatalogHandlersGetMissingMenuItem(t *testing.T) {
	service := &stubCatalogService{
		getItemFn: func(ctx context.Context, itemID string) (services.MenuItem, error) {
			return services.MenuItem{}, fmt.Errorf("%w: %s", services.ErrCatalogNotFound, itemID)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/menu-items/itm_missing", nil)
	rr := httptest.NewRecorder()
	newCatalogRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestCatalogHandlersCreateDealWithComponents(t *testing.T) {
	var captured services.UpsertDealCommand
	service := &stubCatalogService{
		createDealFn: func(ctx context.Context, cmd services.UpsertDealCommand) (services.Deal, error) {
			captured = cmd
			return services.Deal{
				ID:    "deal_001",
				Name:  cmd.Name,
				Price: cmd.Price,
				Items: []domain.DealItem{{MenuItemID: "itm_001", Name: "Classic Burger", Quantity: 2}},
			}, nil
		},
	}

	body := []byte(`{
		"name": "Duo Deal",
		"price": 900,
		"items": [{"menu_item_id": "itm_001", "quantity": 2}]
	}`)
	req := httptest.NewRequest(http.MethodPost, "/deals", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	newCatalogRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(captured.Items) != 1 || captured.Items[0].MenuItemID != "itm_001" || captured.Items[0].Quantity != 2 {
		t.Fatalf("unexpected deal components: %#v", captured.Items)
	}

	var resp dealResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Deal.Items) != 1 || resp.Deal.Items[0].Name != "Classic Burger" {
		t.Fatalf("expected snapshotted component name, got %#v", resp.Deal.Items)
	}
}

func TestCatalogHandlersDeleteDeal(t *testing.T) {
	var deletedID string
	service := &stubCatalogService{
		deleteDealFn: func(ctx context.Context, dealID string) error {
			deletedID = dealID
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/deals/deal_001", nil)
	rr := httptest.NewRecorder()
	newCatalogRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if deletedID != "deal_001" {
		t.Fatalf("expected deal_001 deleted, got %q", deletedID)
	}
}

func TestCatalogHandlersServiceUnavailable(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/menu-items", nil)
	rr := httptest.NewRecorder()
	newCatalogRouter(nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}
