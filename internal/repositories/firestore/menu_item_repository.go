package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/amber-cafe/api/internal/domain"
	pfirestore "github.com/amber-cafe/api/internal/platform/firestore"
	"github.com/amber-cafe/api/internal/repositories"
)

const menuItemCollection = "menu_items"

// MenuItemRepository persists catalog items in Firestore.
type MenuItemRepository struct {
	base *pfirestore.BaseRepository[menuItemDocument]
}

// NewMenuItemRepository constructs a Firestore-backed menu item repository.
func NewMenuItemRepository(provider *pfirestore.Provider) (*MenuItemRepository, error) {
	if provider == nil {
		return nil, errors.New("menu item repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[menuItemDocument](provider, menuItemCollection)
	return &MenuItemRepository{base: base}, nil
}

// Insert creates a new menu item.
func (r *MenuItemRepository) Insert(ctx context.Context, item domain.MenuItem) error {
	return r.write(ctx, item)
}

// Update overwrites an existing menu item.
func (r *MenuItemRepository) Update(ctx context.Context, item domain.MenuItem) error {
	return r.write(ctx, item)
}

func (r *MenuItemRepository) write(ctx context.Context, item domain.MenuItem) error {
	if r == nil || r.base == nil {
		return errors.New("menu item repository not initialised")
	}
	if strings.TrimSpace(item.ID) == "" {
		return errors.New("menu item repository: item id is required")
	}
	_, err := r.base.Set(ctx, item.ID, fromDomainMenuItem(item))
	return err
}

// Delete removes the menu item.
func (r *MenuItemRepository) Delete(ctx context.Context, itemID string) error {
	if r == nil || r.base == nil {
		return errors.New("menu item repository not initialised")
	}
	if strings.TrimSpace(itemID) == "" {
		return errors.New("menu item repository: item id is required")
	}
	return r.base.Delete(ctx, itemID)
}

// FindByID loads a single menu item.
func (r *MenuItemRepository) FindByID(ctx context.Context, itemID string) (domain.MenuItem, error) {
	if r == nil || r.base == nil {
		return domain.MenuItem{}, errors.New("menu item repository not initialised")
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.MenuItem{}, errors.New("menu item repository: item id is required")
	}
	doc, err := r.base.Get(ctx, itemID)
	if err != nil {
		return domain.MenuItem{}, err
	}
	return toDomainMenuItem(doc.ID, doc.Data), nil
}

// FindByIDs loads the requested items keyed by ID. Missing IDs are simply absent
// from the result; callers decide whether that is an error.
func (r *MenuItemRepository) FindByIDs(ctx context.Context, itemIDs []string) (map[string]domain.MenuItem, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("menu item repository not initialised")
	}

	result := make(map[string]domain.MenuItem, len(itemIDs))
	for _, id := range itemIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, seen := result[id]; seen {
			continue
		}
		doc, err := r.base.Get(ctx, id)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				continue
			}
			return nil, err
		}
		result[id] = toDomainMenuItem(doc.ID, doc.Data)
	}
	return result, nil
}

// List returns catalog items ordered by most recent creation.
func (r *MenuItemRepository) List(ctx context.Context, filter repositories.MenuItemFilter) (domain.CursorPage[domain.MenuItem], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.MenuItem]{}, errors.New("menu item repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.MenuItem]{}, fmt.Errorf("menu item repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if category := strings.TrimSpace(filter.Category); category != "" {
			q = q.Where("category", "==", category)
		}
		if filter.AvailableOnly {
			q = q.Where("available", "==", true)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.MenuItem]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.MenuItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainMenuItem(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.MenuItem]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type menuItemDocument struct {
	Name        string    `firestore:"name"`
	Description string    `firestore:"description,omitempty"`
	Category    string    `firestore:"category,omitempty"`
	Price       float64   `firestore:"price"`
	Available   bool      `firestore:"available"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func fromDomainMenuItem(item domain.MenuItem) menuItemDocument {
	return menuItemDocument{
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		Price:       item.Price,
		Available:   item.Available,
		CreatedAt:   item.CreatedAt.UTC(),
		UpdatedAt:   item.UpdatedAt.UTC(),
	}
}

func toDomainMenuItem(id string, doc menuItemDocument) domain.MenuItem {
	return domain.MenuItem{
		ID:          id,
		Name:        doc.Name,
		Description: doc.Description,
		Category:    doc.Category,
		Price:       doc.Price,
		Available:   doc.Available,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
