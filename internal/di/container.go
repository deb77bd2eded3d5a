package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/amber-cafe/api/internal/platform/config"
	"github.com/amber-cafe/api/internal/repositories"
	"github.com/amber-cafe/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete
// implementations are assembled via dependency injection in NewContainer.
type Services struct {
	Orders  services.OrderService
	Catalog services.CatalogService
	Users   services.UserService
	Stats   services.StatsService
	Audit   services.AuditLogService
	System  services.SystemService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option customises container construction.
type Option func(*containerOptions)

type containerOptions struct {
	events services.OrderEventPublisher
	logger *zap.Logger
}

// WithEventPublisher injects the order event publisher used for lifecycle fan-out.
func WithEventPublisher(events services.OrderEventPublisher) Option {
	return func(o *containerOptions) {
		o.events = events
	}
}

// WithLogger injects the logger the services emit structured events through.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore-backed registry; tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	var options containerOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	svc, err := buildServices(cfg, reg, options)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, options containerOptions) (Services, error) {
	var svc Services

	eventLogger := newEventLogger(options.logger)

	audit, err := services.NewAuditLogService(services.AuditLogServiceDeps{
		Repository: reg.AuditLogs(),
		Clock:      time.Now,
		Logger:     options.logger.Sugar(),
		HashSalt:   cfg.Audit.HashSalt,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build audit log service: %w", err)
	}
	svc.Audit = audit

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:             reg.Orders(),
		MenuItems:          reg.MenuItems(),
		Deals:              reg.Deals(),
		Audit:              svc.Audit,
		NumberPrefix:       cfg.Orders.NumberPrefix,
		NumberDigits:       cfg.Orders.NumberDigits,
		NumberAttempts:     cfg.Orders.NumberAttempts,
		CancellationPolicy: cfg.Orders.CancellationPolicy,
		Clock:              time.Now,
		Events:             options.events,
		Logger:             eventLogger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orders

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		MenuItems: reg.MenuItems(),
		Deals:     reg.Deals(),
		Clock:     time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalog

	users, err := services.NewUserService(services.UserServiceDeps{
		Users: reg.Users(),
		Clock: time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = users

	location := time.UTC
	if tz := cfg.Stats.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Services{}, fmt.Errorf("load stats timezone %q: %w", tz, err)
		}
		location = loc
	}
	stats, err := services.NewStatsService(services.StatsServiceDeps{
		Orders:          reg.Orders(),
		CycleStartHour:  cfg.Stats.DayCycleStartHour,
		TopProductCount: cfg.Stats.TopProductCount,
		Location:        location,
		Clock:           time.Now,
		Logger:          eventLogger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build stats service: %w", err)
	}
	svc.Stats = stats

	system, err := services.NewSystemService(reg.Health())
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = system

	return svc, nil
}

func newEventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
