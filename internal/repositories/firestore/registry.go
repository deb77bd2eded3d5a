package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/amber-cafe/api/internal/platform/firestore"
	"github.com/amber-cafe/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the repositories.Registry
// contract for dependency injection.
type Registry struct {
	provider *pfirestore.Provider

	orders    *OrderRepository
	menuItems *MenuItemRepository
	deals     *DealRepository
	users     *UserRepository
	auditLogs *AuditLogRepository
	health    repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs all Firestore repositories against the shared provider.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}
	if health == nil {
		return nil, errors.New("registry requires health repository")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	menuItems, err := NewMenuItemRepository(provider)
	if err != nil {
		return nil, err
	}
	deals, err := NewDealRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	auditLogs, err := NewAuditLogRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:  provider,
		orders:    orders,
		menuItems: menuItems,
		deals:     deals,
		users:     users,
		auditLogs: auditLogs,
		health:    health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(_ context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close()
}

func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) MenuItems() repositories.MenuItemRepository { return r.menuItems }
func (r *Registry) Deals() repositories.DealRepository         { return r.deals }
func (r *Registry) Users() repositories.UserRepository         { return r.users }
func (r *Registry) AuditLogs() repositories.AuditLogRepository { return r.auditLogs }
func (r *Registry) Health() repositories.HealthRepository      { return r.health }

// RunInTx executes fn directly. Mutations needing read-modify-write atomicity go
// through OrderRepository.Insert/Mutate/Delete, which open their own Firestore
// transactions; grouping unrelated repository calls is not supported by the backend.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	return fn(ctx)
}
