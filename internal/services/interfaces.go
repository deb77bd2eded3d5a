package services

import (
	"context"
	"time"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination    = domain.Pagination
	Order         = domain.Order
	OrderLine     = domain.OrderLine
	OrderStatus   = domain.OrderStatus
	OrderType     = domain.OrderType
	PaymentMethod = domain.PaymentMethod
	PaymentStatus = domain.PaymentStatus
	MenuItem      = domain.MenuItem
	Deal          = domain.Deal
	DealItem      = domain.DealItem
	User          = domain.User
	AuditLogEntry = domain.AuditLogEntry
	AuditAction   = domain.AuditAction
)

// OrderService orchestrates order creation, lifecycle transitions, edits, and deletion.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	Get(ctx context.Context, orderID string) (Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (StatusChangeResult, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	Update(ctx context.Context, cmd UpdateOrderCommand) (Order, error)
	Delete(ctx context.Context, cmd DeleteOrderCommand) error
}

// StatsService aggregates completed orders into operating-day sales reports.
type StatsService interface {
	SalesReport(ctx context.Context, query SalesReportQuery) (SalesReport, error)
}

// CatalogService manages menu items and deals.
type CatalogService interface {
	CreateMenuItem(ctx context.Context, cmd UpsertMenuItemCommand) (MenuItem, error)
	UpdateMenuItem(ctx context.Context, cmd UpsertMenuItemCommand) (MenuItem, error)
	DeleteMenuItem(ctx context.Context, itemID string) error
	GetMenuItem(ctx context.Context, itemID string) (MenuItem, error)
	ListMenuItems(ctx context.Context, filter MenuItemListFilter) (domain.CursorPage[MenuItem], error)
	CreateDeal(ctx context.Context, cmd UpsertDealCommand) (Deal, error)
	UpdateDeal(ctx context.Context, cmd UpsertDealCommand) (Deal, error)
	DeleteDeal(ctx context.Context, dealID string) error
	GetDeal(ctx context.Context, dealID string) (Deal, error)
	ListDeals(ctx context.Context, filter DealListFilter) (domain.CursorPage[Deal], error)
}

// UserService manages staff accounts.
type UserService interface {
	UpsertUser(ctx context.Context, cmd UpsertUserCommand) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	ListUsers(ctx context.Context, filter UserListFilter) (domain.CursorPage[User], error)
	DeactivateUser(ctx context.Context, cmd DeactivateUserCommand) (User, error)
}

// AuditLogService records and retrieves audit trail entries.
type AuditLogService interface {
	Record(ctx context.Context, record AuditLogRecord)
	List(ctx context.Context, filter AuditLogListFilter) (domain.CursorPage[AuditLogEntry], error)
}

// SystemService surfaces dependency health for probes.
type SystemService interface {
	Health(ctx context.Context) (repositories.SystemHealthReport, error)
}

// Command/query DTOs ---------------------------------------------------------

// CreateOrderCommand carries the inputs to build a new order in DRAFT.
type CreateOrderCommand struct {
	Type            OrderType
	Lines           []OrderLineInput
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	Discount        float64
	DeliveryCharges float64
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	Note            string
	Actor           string
	ActorRole       string
}

// OrderLineInput references a catalog entry by kind and ID. Quantity must be positive.
// Repeated references to the same entry stay as separate lines.
type OrderLineInput struct {
	Kind     domain.LineKind
	RefID    string
	Quantity int
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	Status        []OrderStatus
	Type          OrderType
	PaymentStatus PaymentStatus
	DateRange     domain.RangeQuery[time.Time]
	Pagination    Pagination
}

// OrderStatusTransitionCommand requests a lifecycle move for an order.
type OrderStatusTransitionCommand struct {
	OrderID   string
	Target    OrderStatus
	Reason    string
	Actor     string
	ActorRole string
}

// StatusChangeResult couples the updated order with override metadata so the
// response surface can flag manager overrides.
type StatusChangeResult struct {
	Order       Order
	WasOverride bool
	Event       AuditAction
}

// CancelOrderCommand cancels a non-terminal order.
type CancelOrderCommand struct {
	OrderID   string
	Reason    string
	Actor     string
	ActorRole string
}

// UpdateOrderCommand edits an order's mutable fields. Nil pointers leave the field
// untouched; non-payment fields are only editable while the order is in DRAFT.
type UpdateOrderCommand struct {
	OrderID         string
	Type            *OrderType
	Lines           []OrderLineInput
	HasLines        bool
	CustomerName    *string
	CustomerPhone   *string
	DeliveryAddress *string
	Discount        *float64
	DeliveryCharges *float64
	PaymentMethod   *PaymentMethod
	PaymentStatus   *PaymentStatus
	Note            *string
	Actor           string
	ActorRole       string
}

// DeleteOrderCommand removes an order entirely. Manager only.
type DeleteOrderCommand struct {
	OrderID   string
	Actor     string
	ActorRole string
}

// SalesReportQuery bounds the reporting window. Zero values report everything up to
// the last fully completed operating day.
type SalesReportQuery struct {
	From *time.Time
	To   *time.Time
}

// UpsertMenuItemCommand creates or updates a catalog item.
type UpsertMenuItemCommand struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
	Available   *bool
}

// UpsertDealCommand creates or updates a bundled offer.
type UpsertDealCommand struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Items       []DealItemInput
	Available   *bool
}

// DealItemInput references a component menu item of a deal.
type DealItemInput struct {
	MenuItemID string
	Quantity   int
}

// MenuItemListFilter narrows catalog item listings.
type MenuItemListFilter struct {
	Category      string
	AvailableOnly bool
	Pagination    Pagination
}

// DealListFilter narrows deal listings.
type DealListFilter struct {
	AvailableOnly bool
	Pagination    Pagination
}

// UpsertUserCommand creates or updates a staff account.
type UpsertUserCommand struct {
	ID     string
	Email  string
	Name   string
	Role   string
	Locale string
	Active *bool
	Actor  string
}

// DeactivateUserCommand disables a staff account.
type DeactivateUserCommand struct {
	UserID string
	Actor  string
}

// UserListFilter narrows staff listings.
type UserListFilter struct {
	Role       string
	ActiveOnly bool
	Pagination Pagination
}

// AuditLogRecord captures one audit trail event prior to sanitisation.
type AuditLogRecord struct {
	Action      AuditAction
	OrderID     string
	OrderNumber string
	Actor       string
	ActorRole   string
	FromStatus  OrderStatus
	ToStatus    OrderStatus
	Reason      string
	Details     map[string]any
	OccurredAt  time.Time
}

// AuditLogListFilter narrows audit trail listings.
type AuditLogListFilter struct {
	OrderID    string
	Action     AuditAction
	Pagination Pagination
}

// OrderEventPublisher fan-outs order lifecycle events to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderEventMessage is the payload published to the order events topic.
type OrderEventMessage struct {
	EventID     string    `json:"eventId"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Action      string    `json:"action"`
	Status      string    `json:"status"`
	Actor       string    `json:"actor"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// SalesReport is the aggregated reporting payload. Day history is bucketed by
// operating day (06:00 to 05:59:59 the next calendar day), most recent first.
type SalesReport struct {
	Overview     BucketStats
	OrderSummary OrderSummary
	TopItems     []ProductSales
	TopDeals     []ProductSales
	DayHistory   []CycleBucket
	Monthly      []PeriodBucket
	Yearly       []PeriodBucket
	RecentOrders []Order
	GeneratedAt  time.Time
}

// BucketStats carries the aggregate figures reused across overview, day,
// month, and year buckets. Revenue, delivery charges, discount, and the
// payment split only count completed orders.
type BucketStats struct {
	OrderCount      int
	CompletedCount  int
	CancelledCount  int
	Revenue         float64
	ItemQuantity    int
	DeliveryCharges float64
	Discount        float64
	PaymentSplit    PaymentSplit
}

// OrderSummary breaks the order set down by channel, status, and payment
// method. Draft and cancelled orders appear in the status tally only.
type OrderSummary struct {
	ByType    map[string]int
	ByStatus  map[string]int
	ByPayment map[string]int
}

// CycleBucket is one operating day in the report history. Gap days between the
// earliest order and the last completed cycle appear with zeroed stats.
type CycleBucket struct {
	Key   string
	Start time.Time
	End   time.Time
	Stats BucketStats
}

// PeriodBucket is a calendar month or year aggregate.
type PeriodBucket struct {
	Key   string
	Stats BucketStats
}

// ProductSales totals sold quantity and revenue for one catalog entry.
type ProductSales struct {
	RefID    string
	Name     string
	Quantity int
	Revenue  float64
}

// PaymentBreakdown is the completed-order amount and count for one method.
type PaymentBreakdown struct {
	Amount float64
	Count  int
}

// PaymentSplit breaks completed-order takings down by payment method.
type PaymentSplit struct {
	Cash   PaymentBreakdown
	Online PaymentBreakdown
}
