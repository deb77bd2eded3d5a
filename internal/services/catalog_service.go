package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/repositories"
)

const (
	menuItemIDPrefix = "itm_"
	dealIDPrefix     = "deal_"

	maxCatalogNameLength        = 120
	maxCatalogDescriptionLength = 1024
)

var (
	// ErrCatalogInvalidInput signals malformed catalog data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the referenced entry does not exist.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogDependency indicates the backing store is unavailable.
	ErrCatalogDependency = errors.New("catalog: dependency unavailable")
)

// CatalogServiceDeps bundles collaborators for the catalog service.
type CatalogServiceDeps struct {
	MenuItems repositories.MenuItemRepository
	Deals     repositories.DealRepository

	Clock       func() time.Time
	IDGenerator func(prefix string) string
}

type catalogService struct {
	menuItems repositories.MenuItemRepository
	deals     repositories.DealRepository
	clock     func() time.Time
	newID     func(prefix string) string
	sanitizer *bluemonday.Policy
}

// NewCatalogService wires the catalog service from its dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.MenuItems == nil {
		return nil, errors.New("catalog service: menu item repository is required")
	}
	if deps.Deals == nil {
		return nil, errors.New("catalog service: deal repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func(prefix string) string { return prefix + strings.ToLower(ulid.Make().String()) }
	}

	return &catalogService{
		menuItems: deps.MenuItems,
		deals:     deps.Deals,
		clock:     func() time.Time { return clock().UTC() },
		newID:     newID,
		// Names and descriptions come in from back-office forms; markup is
		// stripped entirely before persistence.
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// CreateMenuItem validates, sanitises, and stores a new catalog item.
func (s *catalogService) CreateMenuItem(ctx context.Context, cmd UpsertMenuItemCommand) (MenuItem, error) {
	item, err := s.buildMenuItem(cmd)
	if err != nil {
		return MenuItem{}, err
	}
	item.ID = s.newID(menuItemIDPrefix)
	now := s.clock()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := s.menuItems.Insert(ctx, item); err != nil {
		return MenuItem{}, mapCatalogError(err)
	}
	return item, nil
}

// UpdateMenuItem replaces a catalog item's fields, keeping its creation time.
func (s *catalogService) UpdateMenuItem(ctx context.Context, cmd UpsertMenuItemCommand) (MenuItem, error) {
	itemID := strings.TrimSpace(cmd.ID)
	if itemID == "" {
		return MenuItem{}, fmt.Errorf("%w: menu item id is required", ErrCatalogInvalidInput)
	}
	existing, err := s.menuItems.FindByID(ctx, itemID)
	if err != nil {
		return MenuItem{}, mapCatalogError(err)
	}

	item, err := s.buildMenuItem(cmd)
	if err != nil {
		return MenuItem{}, err
	}
	item.ID = existing.ID
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.clock()
	if cmd.Available == nil {
		item.Available = existing.Available
	}
	if err := s.menuItems.Update(ctx, item); err != nil {
		return MenuItem{}, mapCatalogError(err)
	}
	return item, nil
}

// DeleteMenuItem removes a catalog item. Existing order lines keep their
// snapshots; only future orders are affected.
func (s *catalogService) DeleteMenuItem(ctx context.Context, itemID string) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return fmt.Errorf("%w: menu item id is required", ErrCatalogInvalidInput)
	}
	if _, err := s.menuItems.FindByID(ctx, itemID); err != nil {
		return mapCatalogError(err)
	}
	if err := s.menuItems.Delete(ctx, itemID); err != nil {
		return mapCatalogError(err)
	}
	return nil
}

func (s *catalogService) GetMenuItem(ctx context.Context, itemID string) (MenuItem, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return MenuItem{}, fmt.Errorf("%w: menu item id is required", ErrCatalogInvalidInput)
	}
	item, err := s.menuItems.FindByID(ctx, itemID)
	if err != nil {
		return MenuItem{}, mapCatalogError(err)
	}
	return item, nil
}

func (s *catalogService) ListMenuItems(ctx context.Context, filter MenuItemListFilter) (domain.CursorPage[MenuItem], error) {
	page, err := s.menuItems.List(ctx, repositories.MenuItemFilter{
		Category:      strings.TrimSpace(filter.Category),
		AvailableOnly: filter.AvailableOnly,
		Pagination:    filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[MenuItem]{}, mapCatalogError(err)
	}
	return page, nil
}

// CreateDeal validates the bundle against the current menu and stores it.
func (s *catalogService) CreateDeal(ctx context.Context, cmd UpsertDealCommand) (Deal, error) {
	deal, err := s.buildDeal(ctx, cmd)
	if err != nil {
		return Deal{}, err
	}
	deal.ID = s.newID(dealIDPrefix)
	now := s.clock()
	deal.CreatedAt = now
	deal.UpdatedAt = now
	if err := s.deals.Insert(ctx, deal); err != nil {
		return Deal{}, mapCatalogError(err)
	}
	return deal, nil
}

// UpdateDeal replaces a deal's fields and revalidates its component items.
func (s *catalogService) UpdateDeal(ctx context.Context, cmd UpsertDealCommand) (Deal, error) {
	dealID := strings.TrimSpace(cmd.ID)
	if dealID == "" {
		return Deal{}, fmt.Errorf("%w: deal id is required", ErrCatalogInvalidInput)
	}
	existing, err := s.deals.FindByID(ctx, dealID)
	if err != nil {
		return Deal{}, mapCatalogError(err)
	}

	deal, err := s.buildDeal(ctx, cmd)
	if err != nil {
		return Deal{}, err
	}
	deal.ID = existing.ID
	deal.CreatedAt = existing.CreatedAt
	deal.UpdatedAt = s.clock()
	if cmd.Available == nil {
		deal.Available = existing.Available
	}
	if err := s.deals.Update(ctx, deal); err != nil {
		return Deal{}, mapCatalogError(err)
	}
	return deal, nil
}

func (s *catalogService) DeleteDeal(ctx context.Context, dealID string) error {
	dealID = strings.TrimSpace(dealID)
	if dealID == "" {
		return fmt.Errorf("%w: deal id is required", ErrCatalogInvalidInput)
	}
	if _, err := s.deals.FindByID(ctx, dealID); err != nil {
		return mapCatalogError(err)
	}
	if err := s.deals.Delete(ctx, dealID); err != nil {
		return mapCatalogError(err)
	}
	return nil
}

func (s *catalogService) GetDeal(ctx context.Context, dealID string) (Deal, error) {
	dealID = strings.TrimSpace(dealID)
	if dealID == "" {
		return Deal{}, fmt.Errorf("%w: deal id is required", ErrCatalogInvalidInput)
	}
	deal, err := s.deals.FindByID(ctx, dealID)
	if err != nil {
		return Deal{}, mapCatalogError(err)
	}
	return deal, nil
}

func (s *catalogService) ListDeals(ctx context.Context, filter DealListFilter) (domain.CursorPage[Deal], error) {
	page, err := s.deals.List(ctx, repositories.DealFilter{
		AvailableOnly: filter.AvailableOnly,
		Pagination:    filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Deal]{}, mapCatalogError(err)
	}
	return page, nil
}

func (s *catalogService) buildMenuItem(cmd UpsertMenuItemCommand) (domain.MenuItem, error) {
	name := s.sanitizeText(cmd.Name, maxCatalogNameLength)
	if name == "" {
		return domain.MenuItem{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if cmd.Price < 0 {
		return domain.MenuItem{}, fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	}

	available := true
	if cmd.Available != nil {
		available = *cmd.Available
	}
	return domain.MenuItem{
		Name:        name,
		Description: s.sanitizeText(cmd.Description, maxCatalogDescriptionLength),
		Category:    s.sanitizeText(cmd.Category, maxCatalogNameLength),
		Price:       cmd.Price,
		Available:   available,
	}, nil
}

func (s *catalogService) buildDeal(ctx context.Context, cmd UpsertDealCommand) (domain.Deal, error) {
	name := s.sanitizeText(cmd.Name, maxCatalogNameLength)
	if name == "" {
		return domain.Deal{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if cmd.Price < 0 {
		return domain.Deal{}, fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return domain.Deal{}, fmt.Errorf("%w: a deal needs at least one component item", ErrCatalogInvalidInput)
	}

	itemIDs := make([]string, 0, len(cmd.Items))
	for i, input := range cmd.Items {
		if strings.TrimSpace(input.MenuItemID) == "" {
			return domain.Deal{}, fmt.Errorf("%w: component %d is missing a menu item reference", ErrCatalogInvalidInput, i)
		}
		if input.Quantity < 1 {
			return domain.Deal{}, fmt.Errorf("%w: component %d quantity must be at least 1", ErrCatalogInvalidInput, i)
		}
		itemIDs = append(itemIDs, strings.TrimSpace(input.MenuItemID))
	}

	found, err := s.menuItems.FindByIDs(ctx, itemIDs)
	if err != nil {
		return domain.Deal{}, mapCatalogError(err)
	}

	components := make([]domain.DealItem, 0, len(cmd.Items))
	for _, input := range cmd.Items {
		item, ok := found[strings.TrimSpace(input.MenuItemID)]
		if !ok {
			return domain.Deal{}, fmt.Errorf("%w: menu item %s", ErrCatalogNotFound, input.MenuItemID)
		}
		components = append(components, domain.DealItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   input.Quantity,
		})
	}

	available := true
	if cmd.Available != nil {
		available = *cmd.Available
	}
	return domain.Deal{
		Name:        name,
		Description: s.sanitizeText(cmd.Description, maxCatalogDescriptionLength),
		Price:       cmd.Price,
		Items:       components,
		Available:   available,
	}, nil
}

func (s *catalogService) sanitizeText(value string, limit int) string {
	value = strings.TrimSpace(s.sanitizer.Sanitize(value))
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}

func mapCatalogError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCatalogDependency, err)
		}
	}
	return err
}
