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

const auditLogCollection = "audit_logs"

// AuditLogRepository appends immutable audit entries to Firestore.
type AuditLogRepository struct {
	base *pfirestore.BaseRepository[auditLogDocument]
}

// NewAuditLogRepository constructs a Firestore-backed audit log repository.
func NewAuditLogRepository(provider *pfirestore.Provider) (*AuditLogRepository, error) {
	if provider == nil {
		return nil, errors.New("audit log repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[auditLogDocument](provider, auditLogCollection)
	return &AuditLogRepository{base: base}, nil
}

// Append stores a new audit entry. Entries are never updated afterwards.
func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	if r == nil || r.base == nil {
		return errors.New("audit log repository not initialised")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return errors.New("audit log repository: entry id is required")
	}
	_, err := r.base.Set(ctx, entry.ID, fromDomainAuditEntry(entry))
	return err
}

// List returns audit entries ordered newest first.
func (r *AuditLogRepository) List(ctx context.Context, filter repositories.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, errors.New("audit log repository not initialised")
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
			return domain.CursorPage[domain.AuditLogEntry]{}, fmt.Errorf("audit log repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if orderID := strings.TrimSpace(filter.OrderID); orderID != "" {
			q = q.Where("orderId", "==", orderID)
		}
		if action := strings.TrimSpace(string(filter.Action)); action != "" {
			q = q.Where("action", "==", action)
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
		return domain.CursorPage[domain.AuditLogEntry]{}, err
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

	items := make([]domain.AuditLogEntry, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainAuditEntry(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.AuditLogEntry]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type auditLogDocument struct {
	Action      string         `firestore:"action"`
	OrderID     string         `firestore:"orderId,omitempty"`
	OrderNumber string         `firestore:"orderNumber,omitempty"`
	Actor       string         `firestore:"actor"`
	ActorRole   string         `firestore:"actorRole,omitempty"`
	FromStatus  string         `firestore:"fromStatus,omitempty"`
	ToStatus    string         `firestore:"toStatus,omitempty"`
	Reason      string         `firestore:"reason,omitempty"`
	Details     map[string]any `firestore:"details,omitempty"`
	CreatedAt   time.Time      `firestore:"createdAt"`
}

func fromDomainAuditEntry(entry domain.AuditLogEntry) auditLogDocument {
	return auditLogDocument{
		Action:      string(entry.Action),
		OrderID:     entry.OrderID,
		OrderNumber: entry.OrderNumber,
		Actor:       entry.Actor,
		ActorRole:   entry.ActorRole,
		FromStatus:  string(entry.FromStatus),
		ToStatus:    string(entry.ToStatus),
		Reason:      entry.Reason,
		Details:     entry.Details,
		CreatedAt:   entry.CreatedAt.UTC(),
	}
}

func toDomainAuditEntry(id string, doc auditLogDocument) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:          id,
		Action:      domain.AuditAction(doc.Action),
		OrderID:     doc.OrderID,
		OrderNumber: doc.OrderNumber,
		Actor:       doc.Actor,
		ActorRole:   doc.ActorRole,
		FromStatus:  domain.OrderStatus(doc.FromStatus),
		ToStatus:    domain.OrderStatus(doc.ToStatus),
		Reason:      doc.Reason,
		Details:     doc.Details,
		CreatedAt:   doc.CreatedAt,
	}
}
