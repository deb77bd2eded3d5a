package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/repositories"
)

const hashedValuePrefix = "sha256:"

// Detail keys whose values are hashed before persistence.
var sensitiveDetailKeys = map[string]bool{
	"customerPhone":   true,
	"deliveryAddress": true,
}

// AuditLogger defines the logging contract used by the audit writer service.
type AuditLogger interface {
	Warnf(format string, args ...any)
}

type noopAuditLogger struct{}

func (noopAuditLogger) Warnf(string, ...any) {}

type auditLogService struct {
	repo     repositories.AuditLogRepository
	clock    func() time.Time
	newID    func() string
	logger   AuditLogger
	hashSalt string
}

// AuditLogServiceDeps bundles constructor inputs for the audit writer service.
type AuditLogServiceDeps struct {
	Repository  repositories.AuditLogRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      AuditLogger
	HashSalt    string
}

// NewAuditLogService creates an audit log writer backed by the supplied repository.
func NewAuditLogService(deps AuditLogServiceDeps) (AuditLogService, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("audit log service: repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return "aud_" + strings.ToLower(ulid.Make().String()) }
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopAuditLogger{}
	}

	return &auditLogService{
		repo:     deps.Repository,
		clock:    func() time.Time { return clock().UTC() },
		newID:    newID,
		logger:   logger,
		hashSalt: deps.HashSalt,
	}, nil
}

// Record persists an audit log entry after sanitising sensitive fields. Repository failures
// are logged but do not bubble up to callers to avoid interrupting the primary mutation flow.
func (s *auditLogService) Record(ctx context.Context, record AuditLogRecord) {
	entry := s.buildEntry(record)
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warnf("audit log append failed for %s on order %s: %v", entry.Action, entry.OrderID, err)
	}
}

// List delegates to the repository to retrieve paginated audit logs.
func (s *auditLogService) List(ctx context.Context, filter AuditLogListFilter) (domain.CursorPage[AuditLogEntry], error) {
	return s.repo.List(ctx, repositories.AuditLogFilter{
		OrderID:    strings.TrimSpace(filter.OrderID),
		Action:     filter.Action,
		Pagination: filter.Pagination,
	})
}

func (s *auditLogService) buildEntry(record AuditLogRecord) domain.AuditLogEntry {
	occurred := record.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	} else {
		occurred = occurred.UTC()
	}

	return domain.AuditLogEntry{
		ID:          s.newID(),
		Action:      record.Action,
		OrderID:     strings.TrimSpace(record.OrderID),
		OrderNumber: strings.TrimSpace(record.OrderNumber),
		Actor:       sanitizeAuditText(record.Actor, 128),
		ActorRole:   strings.ToLower(strings.TrimSpace(record.ActorRole)),
		FromStatus:  record.FromStatus,
		ToStatus:    record.ToStatus,
		Reason:      sanitizeAuditText(record.Reason, 512),
		Details:     s.prepareDetails(record.Details),
		CreatedAt:   occurred,
	}
}

func (s *auditLogService) prepareDetails(details map[string]any) map[string]any {
	if len(details) == 0 {
		return nil
	}
	result := make(map[string]any, len(details))
	for key, value := range details {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if sensitiveDetailKeys[trimmedKey] {
			result[trimmedKey] = hashedValuePrefix + s.hashValue(value)
			continue
		}
		result[trimmedKey] = sanitizeDetailValue(value)
	}
	return result
}

func (s *auditLogService) hashValue(value any) string {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		text = fmt.Sprintf("%v", v)
	}
	sum := sha256.Sum256([]byte(s.hashSalt + strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

func sanitizeAuditText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}

func sanitizeDetailValue(value any) any {
	if text, ok := value.(string); ok {
		return sanitizeAuditText(text, 1024)
	}
	return value
}
