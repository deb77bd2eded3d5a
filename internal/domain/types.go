package domain

import "time"

// OrderType enumerates the fulfilment channels an order can flow through.
type OrderType string

const (
	// OrderTypeDine is an order consumed on premises.
	OrderTypeDine OrderType = "dine"
	// OrderTypeTakeaway is an order collected at the counter.
	OrderTypeTakeaway OrderType = "takeaway"
	// OrderTypeDelivery is an order dispatched to a customer address.
	OrderTypeDelivery OrderType = "delivery"
)

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusDraft indicates the order is still being assembled and remains editable.
	OrderStatusDraft OrderStatus = "draft"
	// OrderStatusPreparing indicates the kitchen has started working on the order.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusReady indicates preparation is complete and the order awaits handoff.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusOutForDelivery indicates a delivery order has left with a rider.
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	// OrderStatusDelivered indicates a delivery order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusPickedUp indicates a takeaway order was collected by the customer.
	OrderStatusPickedUp OrderStatus = "picked_up"
	// OrderStatusFinished indicates a dine-in order was served and closed out.
	OrderStatusFinished OrderStatus = "finished"
	// OrderStatusCancelled indicates the order was abandoned before completion.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod enumerates how an order was (or will be) paid.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodOnline PaymentMethod = "online"
)

// PaymentStatus enumerates the settlement state of an order.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// LineKind distinguishes whether an order line references a menu item or a deal.
type LineKind string

const (
	LineKindItem LineKind = "item"
	LineKindDeal LineKind = "deal"
)

// Order captures an order header with its snapshot-priced lines.
type Order struct {
	ID              string
	OrderNumber     string
	Type            OrderType
	Status          OrderStatus
	Lines           []OrderLine
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	Subtotal        float64
	Discount        float64
	DeliveryCharges float64
	Total           float64
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	Note            string
	CreatedBy       string
	UpdatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CancelledAt     *time.Time
	CancelReason    string
}

// OrderLine mirrors catalog entries at the time the order was placed. Prices on the
// line never change afterwards, regardless of later catalog edits.
type OrderLine struct {
	Kind      LineKind
	RefID     string
	Name      string
	UnitPrice float64
	Quantity  int
	LineTotal float64
}

// MenuItem is a single sellable catalog entry.
type MenuItem struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Deal bundles multiple menu items under a single price.
type Deal struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Items       []DealItem
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DealItem references a component of a deal with its bundled quantity.
type DealItem struct {
	MenuItemID string
	Name       string
	Quantity   int
}

// User is a staff account able to operate the point of sale.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      string
	Locale    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuditAction enumerates the recorded audit trail actions.
type AuditAction string

const (
	AuditActionOrderCreated       AuditAction = "ORDER_CREATED"
	AuditActionOrderUpdated       AuditAction = "ORDER_UPDATED"
	AuditActionOrderStatusChanged AuditAction = "ORDER_STATUS_CHANGED"
	AuditActionOrderReopened      AuditAction = "ORDER_REOPENED"
	AuditActionOrderCancelled     AuditAction = "ORDER_CANCELLED"
	AuditActionOrderDeleted       AuditAction = "ORDER_DELETED"
)

// AuditLogEntry records a single actor-attributed event against an order.
type AuditLogEntry struct {
	ID          string
	Action      AuditAction
	OrderID     string
	OrderNumber string
	Actor       string
	ActorRole   string
	FromStatus  OrderStatus
	ToStatus    OrderStatus
	Reason      string
	Details     map[string]any
	CreatedAt   time.Time
}
