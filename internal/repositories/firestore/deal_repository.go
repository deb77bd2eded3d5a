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

const dealCollection = "deals"

// DealRepository persists bundled offers in Firestore.
type DealRepository struct {
	base *pfirestore.BaseRepository[dealDocument]
}

// NewDealRepository constructs a Firestore-backed deal repository.
func NewDealRepository(provider *pfirestore.Provider) (*DealRepository, error) {
	if provider == nil {
		return nil, errors.New("deal repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[dealDocument](provider, dealCollection)
	return &DealRepository{base: base}, nil
}

// Insert creates a new deal.
func (r *DealRepository) Insert(ctx context.Context, deal domain.Deal) error {
	return r.write(ctx, deal)
}

// Update overwrites an existing deal.
func (r *DealRepository) Update(ctx context.Context, deal domain.Deal) error {
	return r.write(ctx, deal)
}

func (r *DealRepository) write(ctx context.Context, deal domain.Deal) error {
	if r == nil || r.base == nil {
		return errors.New("deal repository not initialised")
	}
	if strings.TrimSpace(deal.ID) == "" {
		return errors.New("deal repository: deal id is required")
	}
	_, err := r.base.Set(ctx, deal.ID, fromDomainDeal(deal))
	return err
}

// Delete removes the deal.
func (r *DealRepository) Delete(ctx context.Context, dealID string) error {
	if r == nil || r.base == nil {
		return errors.New("deal repository not initialised")
	}
	if strings.TrimSpace(dealID) == "" {
		return errors.New("deal repository: deal id is required")
	}
	return r.base.Delete(ctx, dealID)
}

// FindByID loads a single deal.
func (r *DealRepository) FindByID(ctx context.Context, dealID string) (domain.Deal, error) {
	if r == nil || r.base == nil {
		return domain.Deal{}, errors.New("deal repository not initialised")
	}
	dealID = strings.TrimSpace(dealID)
	if dealID == "" {
		return domain.Deal{}, errors.New("deal repository: deal id is required")
	}
	doc, err := r.base.Get(ctx, dealID)
	if err != nil {
		return domain.Deal{}, err
	}
	return toDomainDeal(doc.ID, doc.Data), nil
}

// FindByIDs loads the requested deals keyed by ID, skipping missing documents.
func (r *DealRepository) FindByIDs(ctx context.Context, dealIDs []string) (map[string]domain.Deal, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("deal repository not initialised")
	}

	result := make(map[string]domain.Deal, len(dealIDs))
	for _, id := range dealIDs {
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
		result[id] = toDomainDeal(doc.ID, doc.Data)
	}
	return result, nil
}

// List returns deals ordered by most recent creation.
func (r *DealRepository) List(ctx context.Context, filter repositories.DealFilter) (domain.CursorPage[domain.Deal], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Deal]{}, errors.New("deal repository not initialised")
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
			return domain.CursorPage[domain.Deal]{}, fmt.Errorf("deal repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
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
		return domain.CursorPage[domain.Deal]{}, err
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

	items := make([]domain.Deal, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainDeal(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Deal]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type dealDocument struct {
	Name        string             `firestore:"name"`
	Description string             `firestore:"description,omitempty"`
	Price       float64            `firestore:"price"`
	Items       []dealItemDocument `firestore:"items"`
	Available   bool               `firestore:"available"`
	CreatedAt   time.Time          `firestore:"createdAt"`
	UpdatedAt   time.Time          `firestore:"updatedAt"`
}

type dealItemDocument struct {
	MenuItemID string `firestore:"menuItemId"`
	Name       string `firestore:"name"`
	Quantity   int    `firestore:"quantity"`
}

func fromDomainDeal(deal domain.Deal) dealDocument {
	items := make([]dealItemDocument, 0, len(deal.Items))
	for _, item := range deal.Items {
		items = append(items, dealItemDocument{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
		})
	}
	return dealDocument{
		Name:        deal.Name,
		Description: deal.Description,
		Price:       deal.Price,
		Items:       items,
		Available:   deal.Available,
		CreatedAt:   deal.CreatedAt.UTC(),
		UpdatedAt:   deal.UpdatedAt.UTC(),
	}
}

func toDomainDeal(id string, doc dealDocument) domain.Deal {
	items := make([]domain.DealItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.DealItem{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
		})
	}
	return domain.Deal{
		ID:          id,
		Name:        doc.Name,
		Description: doc.Description,
		Price:       doc.Price,
		Items:       items,
		Available:   doc.Available,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
