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

const userCollection = "users"

// UserRepository persists staff accounts keyed by their identity provider UID.
type UserRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[userDocument](provider, userCollection)
	return &UserRepository{base: base}, nil
}

// Upsert writes the staff account and returns the stored representation.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return domain.User{}, errors.New("user repository: user id is required")
	}

	if _, err := r.base.Set(ctx, user.ID, fromDomainUser(user)); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// FindByID loads the staff account by UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, errors.New("user repository: user id is required")
	}
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(doc.ID, doc.Data), nil
}

// List returns staff accounts ordered by most recent creation.
func (r *UserRepository) List(ctx context.Context, filter repositories.UserFilter) (domain.CursorPage[domain.User], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.User]{}, errors.New("user repository not initialised")
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
			return domain.CursorPage[domain.User]{}, fmt.Errorf("user repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if role := strings.TrimSpace(filter.Role); role != "" {
			q = q.Where("role", "==", role)
		}
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
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
		return domain.CursorPage[domain.User]{}, err
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

	items := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainUser(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.User]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// CountActiveManagers returns the number of active manager accounts.
func (r *UserRepository) CountActiveManagers(ctx context.Context) (int, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("user repository not initialised")
	}

	count := 0
	err := r.base.Walk(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("role", "==", "manager").Where("active", "==", true)
	}, func(pfirestore.Document[userDocument]) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

type userDocument struct {
	Email     string    `firestore:"email"`
	Name      string    `firestore:"name"`
	Role      string    `firestore:"role"`
	Locale    string    `firestore:"locale,omitempty"`
	Active    bool      `firestore:"active"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func fromDomainUser(user domain.User) userDocument {
	return userDocument{
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Locale:    user.Locale,
		Active:    user.Active,
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
}

func toDomainUser(id string, doc userDocument) domain.User {
	return domain.User{
		ID:        id,
		Email:     doc.Email,
		Name:      doc.Name,
		Role:      doc.Role,
		Locale:    doc.Locale,
		Active:    doc.Active,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
