package repositories

import (
	"context"
	"time"

	domain "github.com/amber-cafe/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	MenuItems() MenuItemRepository
	Deals() DealRepository
	Users() UserRepository
	AuditLogs() AuditLogRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order documents and their unique order numbers.
type OrderRepository interface {
	// Insert creates the order together with its order-number reservation. A
	// RepositoryError with IsConflict is returned when the number is already taken.
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	// Mutate loads the order inside a transaction, applies fn to it, and writes the
	// result back. The read and write are atomic against concurrent mutations.
	Mutate(ctx context.Context, orderID string, fn func(order *domain.Order) error) (domain.Order, error)
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	// Walk streams orders matching the filter without pagination, for reporting scans.
	Walk(ctx context.Context, filter OrderWalkFilter, visit func(order domain.Order) error) error
}

// MenuItemRepository stores sellable catalog items.
type MenuItemRepository interface {
	Insert(ctx context.Context, item domain.MenuItem) error
	Update(ctx context.Context, item domain.MenuItem) error
	Delete(ctx context.Context, itemID string) error
	FindByID(ctx context.Context, itemID string) (domain.MenuItem, error)
	FindByIDs(ctx context.Context, itemIDs []string) (map[string]domain.MenuItem, error)
	List(ctx context.Context, filter MenuItemFilter) (domain.CursorPage[domain.MenuItem], error)
}

// DealRepository stores bundled offers.
type DealRepository interface {
	Insert(ctx context.Context, deal domain.Deal) error
	Update(ctx context.Context, deal domain.Deal) error
	Delete(ctx context.Context, dealID string) error
	FindByID(ctx context.Context, dealID string) (domain.Deal, error)
	FindByIDs(ctx context.Context, dealIDs []string) (map[string]domain.Deal, error)
	List(ctx context.Context, filter DealFilter) (domain.CursorPage[domain.Deal], error)
}

// UserRepository stores staff accounts keyed by their identity provider UID.
type UserRepository interface {
	Upsert(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, userID string) (domain.User, error)
	List(ctx context.Context, filter UserFilter) (domain.CursorPage[domain.User], error)
	CountActiveManagers(ctx context.Context) (int, error)
}

// AuditLogRepository appends immutable audit trail entries.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (SystemHealthReport, error)
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	GeneratedAt time.Time
}

// SystemHealthCheck captures the outcome of a single dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	LatencyMS int64
	CheckedAt time.Time
}

// Health status values reported by HealthRepository.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusDown     = "down"
)

// Filter DTOs shared across repositories ------------------------------------

type OrderListFilter struct {
	Status        []domain.OrderStatus
	Type          domain.OrderType
	PaymentStatus domain.PaymentStatus
	DateRange     domain.RangeQuery[time.Time]
	Pagination    domain.Pagination
}

// OrderWalkFilter constrains reporting scans. Zero values scan everything.
type OrderWalkFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type MenuItemFilter struct {
	Category      string
	AvailableOnly bool
	Pagination    domain.Pagination
}

type DealFilter struct {
	AvailableOnly bool
	Pagination    domain.Pagination
}

type UserFilter struct {
	Role       string
	ActiveOnly bool
	Pagination domain.Pagination
}

type AuditLogFilter struct {
	OrderID    string
	Action     domain.AuditAction
	Pagination domain.Pagination
}
