package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/repositories"
)

const (
	orderIDPrefix = "ord_"

	roleManager = "manager"

	// CancellationPolicyStaff lets any authenticated role cancel; CancellationPolicyManager
	// restricts cancellation to managers.
	CancellationPolicyStaff   = "staff"
	CancellationPolicyManager = "manager"

	defaultOrderNumberPrefix   = "ORD-AC-"
	defaultOrderNumberDigits   = 5
	defaultOrderNumberAttempts = 10
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates a rejected status transition.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderEditForbidden indicates the edit guard refused a field update.
	ErrOrderEditForbidden = errors.New("order: edit forbidden")
	// ErrOrderForbidden indicates the acting role lacks the required privilege.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderConflict indicates storage conflicts such as order-number collisions.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderDependency indicates the backing store or catalog is unavailable.
	ErrOrderDependency = errors.New("order: dependency unavailable")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders    repositories.OrderRepository
	MenuItems repositories.MenuItemRepository
	Deals     repositories.DealRepository
	Audit     AuditLogService

	// NumberPrefix, NumberDigits, and NumberAttempts shape order-number generation.
	NumberPrefix   string
	NumberDigits   int
	NumberAttempts int
	// CancellationPolicy is CancellationPolicyStaff or CancellationPolicyManager.
	CancellationPolicy string

	Clock           func() time.Time
	IDGenerator     func() string
	NumberGenerator func(digits int) string
	Events          OrderEventPublisher
	Logger          func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders    repositories.OrderRepository
	menuItems repositories.MenuItemRepository
	deals     repositories.DealRepository
	audit     AuditLogService

	numberPrefix       string
	numberDigits       int
	numberAttempts     int
	cancellationPolicy string

	clock     func() time.Time
	newID     func() string
	newNumber func(digits int) string
	events    OrderEventPublisher
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderService wires the order orchestration service from its dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.MenuItems == nil {
		return nil, errors.New("order service: menu item repository is required")
	}
	if deps.Deals == nil {
		return nil, errors.New("order service: deal repository is required")
	}
	if deps.Audit == nil {
		return nil, errors.New("order service: audit log service is required")
	}

	prefix := deps.NumberPrefix
	if prefix == "" {
		prefix = defaultOrderNumberPrefix
	}
	digits := deps.NumberDigits
	if digits <= 0 {
		digits = defaultOrderNumberDigits
	}
	attempts := deps.NumberAttempts
	if attempts <= 0 {
		attempts = defaultOrderNumberAttempts
	}
	policy := strings.ToLower(strings.TrimSpace(deps.CancellationPolicy))
	switch policy {
	case "":
		policy = CancellationPolicyStaff
	case CancellationPolicyStaff, CancellationPolicyManager:
	default:
		return nil, fmt.Errorf("order service: unknown cancellation policy %q", deps.CancellationPolicy)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return orderIDPrefix + strings.ToLower(ulid.Make().String()) }
	}
	newNumber := deps.NumberGenerator
	if newNumber == nil {
		newNumber = randomNumberSuffix
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:             deps.Orders,
		menuItems:          deps.MenuItems,
		deals:              deps.Deals,
		audit:              deps.Audit,
		numberPrefix:       prefix,
		numberDigits:       digits,
		numberAttempts:     attempts,
		cancellationPolicy: policy,
		clock:              func() time.Time { return clock().UTC() },
		newID:              newID,
		newNumber:          newNumber,
		events:             deps.Events,
		logger:             logger,
	}, nil
}

func randomNumberSuffix(digits int) string {
	buf := make([]byte, digits)
	for i := range buf {
		buf[i] = byte('0' + rand.IntN(10))
	}
	return string(buf)
}

// Create validates the command, snapshots catalog prices into order lines, and
// persists a new DRAFT order under a freshly reserved order number.
func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if err := validateCreateCommand(cmd); err != nil {
		return Order{}, err
	}

	lines, subtotal, err := s.resolveLines(ctx, cmd.Lines)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	order := domain.Order{
		ID:              s.newID(),
		Type:            cmd.Type,
		Status:          domain.OrderStatusDraft,
		Lines:           lines,
		CustomerName:    strings.TrimSpace(cmd.CustomerName),
		CustomerPhone:   strings.TrimSpace(cmd.CustomerPhone),
		DeliveryAddress: strings.TrimSpace(cmd.DeliveryAddress),
		Subtotal:        subtotal,
		Discount:        cmd.Discount,
		DeliveryCharges: cmd.DeliveryCharges,
		PaymentMethod:   defaultPaymentMethod(cmd.PaymentMethod),
		PaymentStatus:   defaultPaymentStatus(cmd.PaymentStatus),
		Note:            strings.TrimSpace(cmd.Note),
		CreatedBy:       strings.TrimSpace(cmd.Actor),
		UpdatedBy:       strings.TrimSpace(cmd.Actor),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.Total = orderTotal(order.Subtotal, order.DeliveryCharges, order.Discount)

	inserted := false
	for attempt := 1; attempt <= s.numberAttempts; attempt++ {
		order.OrderNumber = s.numberPrefix + s.newNumber(s.numberDigits)
		err := s.orders.Insert(ctx, order)
		if err == nil {
			inserted = true
			break
		}
		if isRepoConflict(err) {
			s.logger(ctx, "order.number.collision", map[string]any{
				"orderNumber": order.OrderNumber,
				"attempt":     attempt,
			})
			continue
		}
		return Order{}, s.mapRepositoryError(err)
	}
	if !inserted {
		return Order{}, fmt.Errorf("%w: order number generation exhausted %d attempts", ErrOrderConflict, s.numberAttempts)
	}

	s.audit.Record(ctx, AuditLogRecord{
		Action:      domain.AuditActionOrderCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Actor:       cmd.Actor,
		ActorRole:   cmd.ActorRole,
		ToStatus:    order.Status,
		Details: map[string]any{
			"orderType": string(order.Type),
			"total":     order.Total,
			"lineCount": len(order.Lines),
		},
	})
	s.publishEvent(ctx, order, domain.AuditActionOrderCreated, cmd.Actor)

	return order, nil
}

// Get fetches a single order by ID.
func (s *orderService) Get(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

// List returns a page of orders matching the filter.
func (s *orderService) List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	for _, status := range filter.Status {
		if domain.StatusKnown(status) {
			continue
		}
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
	}
	if filter.Type != "" && !domain.ValidOrderType(filter.Type) {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown order type %q", ErrOrderInvalidInput, filter.Type)
	}
	if filter.PaymentStatus != "" && !domain.ValidPaymentStatus(filter.PaymentStatus) {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown payment status %q", ErrOrderInvalidInput, filter.PaymentStatus)
	}

	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		Status:        filter.Status,
		Type:          filter.Type,
		PaymentStatus: filter.PaymentStatus,
		DateRange:     filter.DateRange,
		Pagination:    filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// TransitionStatus applies a lifecycle move atomically against concurrent
// requests on the same order. The decision and the write happen inside one
// storage transaction, so a stale current status can never be overwritten.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (StatusChangeResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return StatusChangeResult{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.StatusKnown(cmd.Target) {
		return StatusChangeResult{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}

	isManager := isManagerRole(cmd.ActorRole)
	now := s.clock()

	var (
		from     domain.OrderStatus
		decision TransitionDecision
	)
	updated, err := s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		from = order.Status
		decision = DecideTransition(order.Type, order.Status, cmd.Target, isManager)
		if !decision.Allowed {
			return fmt.Errorf("%w: %s", ErrOrderInvalidState, decision.Reason)
		}
		if decision.Event == domain.AuditActionOrderCancelled {
			if s.cancellationPolicy == CancellationPolicyManager && !isManager {
				return fmt.Errorf("%w: cancellation requires the manager role", ErrOrderForbidden)
			}
			order.CancelledAt = &now
			order.CancelReason = strings.TrimSpace(cmd.Reason)
		}
		if decision.IsOverride && strings.TrimSpace(cmd.Reason) == "" {
			return fmt.Errorf("%w: a reason is required to reopen an order", ErrOrderInvalidInput)
		}
		order.Status = cmd.Target
		order.UpdatedBy = strings.TrimSpace(cmd.Actor)
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderInvalidState) || errors.Is(err, ErrOrderForbidden) || errors.Is(err, ErrOrderInvalidInput) {
			return StatusChangeResult{}, err
		}
		return StatusChangeResult{}, s.mapRepositoryError(err)
	}

	s.audit.Record(ctx, AuditLogRecord{
		Action:      decision.Event,
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		Actor:       cmd.Actor,
		ActorRole:   cmd.ActorRole,
		FromStatus:  from,
		ToStatus:    updated.Status,
		Reason:      cmd.Reason,
		Details: map[string]any{
			"orderType":  string(updated.Type),
			"isOverride": decision.IsOverride,
		},
	})
	s.publishEvent(ctx, updated, decision.Event, cmd.Actor)

	return StatusChangeResult{Order: updated, WasOverride: decision.IsOverride, Event: decision.Event}, nil
}

// Cancel moves a non-terminal order to CANCELLED.
func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	result, err := s.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:   cmd.OrderID,
		Target:    domain.OrderStatusCancelled,
		Reason:    cmd.Reason,
		Actor:     cmd.Actor,
		ActorRole: cmd.ActorRole,
	})
	if err != nil {
		return Order{}, err
	}
	return result.Order, nil
}

// Update applies a partial field update guarded by edit eligibility. Supplied
// order lines replace the existing set with freshly snapshotted prices.
func (s *orderService) Update(ctx context.Context, cmd UpdateOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	touched := touchedFields(cmd)
	if len(touched) == 0 {
		return Order{}, fmt.Errorf("%w: no fields supplied", ErrOrderInvalidInput)
	}
	if err := validateUpdateCommand(cmd); err != nil {
		return Order{}, err
	}

	// Snapshot resolution talks to the catalog, so it happens before the
	// storage transaction; the guard decision still runs inside it.
	var (
		freshLines    []domain.OrderLine
		freshSubtotal float64
	)
	if cmd.HasLines {
		var err error
		freshLines, freshSubtotal, err = s.resolveLines(ctx, cmd.Lines)
		if err != nil {
			return Order{}, err
		}
	}

	isManager := isManagerRole(cmd.ActorRole)
	now := s.clock()

	updated, err := s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		decision := DecideEdit(order.Status, touched, isManager)
		if !decision.Allowed {
			return fmt.Errorf("%w: %s", ErrOrderEditForbidden, decision.Reason)
		}

		if cmd.Type != nil {
			order.Type = *cmd.Type
		}
		if cmd.CustomerName != nil {
			order.CustomerName = strings.TrimSpace(*cmd.CustomerName)
		}
		if cmd.CustomerPhone != nil {
			order.CustomerPhone = strings.TrimSpace(*cmd.CustomerPhone)
		}
		if cmd.DeliveryAddress != nil {
			order.DeliveryAddress = strings.TrimSpace(*cmd.DeliveryAddress)
		}
		if cmd.Discount != nil {
			order.Discount = *cmd.Discount
		}
		if cmd.DeliveryCharges != nil {
			order.DeliveryCharges = *cmd.DeliveryCharges
		}
		if cmd.PaymentMethod != nil {
			order.PaymentMethod = *cmd.PaymentMethod
		}
		if cmd.PaymentStatus != nil {
			order.PaymentStatus = *cmd.PaymentStatus
		}
		if cmd.Note != nil {
			order.Note = strings.TrimSpace(*cmd.Note)
		}
		if cmd.HasLines {
			order.Lines = freshLines
			order.Subtotal = freshSubtotal
		}

		if order.Type == domain.OrderTypeDelivery {
			if err := validateDeliveryDetails(order.CustomerName, order.CustomerPhone, order.DeliveryAddress, order.DeliveryCharges); err != nil {
				return err
			}
		}

		order.Total = orderTotal(order.Subtotal, order.DeliveryCharges, order.Discount)
		order.UpdatedBy = strings.TrimSpace(cmd.Actor)
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderEditForbidden) || errors.Is(err, ErrOrderInvalidInput) {
			return Order{}, err
		}
		return Order{}, s.mapRepositoryError(err)
	}

	s.audit.Record(ctx, AuditLogRecord{
		Action:      domain.AuditActionOrderUpdated,
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		Actor:       cmd.Actor,
		ActorRole:   cmd.ActorRole,
		Details: map[string]any{
			"fields": strings.Join(touched, ","),
		},
	})

	return updated, nil
}

// Delete removes an order entirely. Manager only; works from any status and
// always leaves an audit trail entry behind.
func (s *orderService) Delete(ctx context.Context, cmd DeleteOrderCommand) error {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !isManagerRole(cmd.ActorRole) {
		return fmt.Errorf("%w: deleting an order requires the manager role", ErrOrderForbidden)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return s.mapRepositoryError(err)
	}

	s.audit.Record(ctx, AuditLogRecord{
		Action:      domain.AuditActionOrderDeleted,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Actor:       cmd.Actor,
		ActorRole:   cmd.ActorRole,
		FromStatus:  order.Status,
		Details: map[string]any{
			"orderType": string(order.Type),
		},
	})
	s.publishEvent(ctx, order, domain.AuditActionOrderDeleted, cmd.Actor)

	return nil
}

// resolveLines snapshots current catalog names and prices into order lines.
// Lines are never merged: two inputs for the same entry stay two lines.
func (s *orderService) resolveLines(ctx context.Context, inputs []OrderLineInput) ([]domain.OrderLine, float64, error) {
	var itemIDs, dealIDs []string
	for _, input := range inputs {
		switch input.Kind {
		case domain.LineKindItem:
			itemIDs = append(itemIDs, input.RefID)
		case domain.LineKindDeal:
			dealIDs = append(dealIDs, input.RefID)
		}
	}

	var (
		items map[string]domain.MenuItem
		deals map[string]domain.Deal
		err   error
	)
	if len(itemIDs) > 0 {
		items, err = s.menuItems.FindByIDs(ctx, itemIDs)
		if err != nil {
			return nil, 0, s.mapRepositoryError(err)
		}
	}
	if len(dealIDs) > 0 {
		deals, err = s.deals.FindByIDs(ctx, dealIDs)
		if err != nil {
			return nil, 0, s.mapRepositoryError(err)
		}
	}

	lines := make([]domain.OrderLine, 0, len(inputs))
	var subtotal float64
	for _, input := range inputs {
		var (
			name  string
			price float64
		)
		switch input.Kind {
		case domain.LineKindItem:
			item, ok := items[input.RefID]
			if !ok {
				return nil, 0, fmt.Errorf("%w: menu item %s", ErrOrderNotFound, input.RefID)
			}
			if !item.Available {
				return nil, 0, fmt.Errorf("%w: menu item %s is not available", ErrOrderInvalidInput, input.RefID)
			}
			name, price = item.Name, item.Price
		case domain.LineKindDeal:
			deal, ok := deals[input.RefID]
			if !ok {
				return nil, 0, fmt.Errorf("%w: deal %s", ErrOrderNotFound, input.RefID)
			}
			if !deal.Available {
				return nil, 0, fmt.Errorf("%w: deal %s is not available", ErrOrderInvalidInput, input.RefID)
			}
			name, price = deal.Name, deal.Price
		}

		lineTotal := price * float64(input.Quantity)
		lines = append(lines, domain.OrderLine{
			Kind:      input.Kind,
			RefID:     input.RefID,
			Name:      name,
			UnitPrice: price,
			Quantity:  input.Quantity,
			LineTotal: lineTotal,
		})
		subtotal += lineTotal
	}
	return lines, subtotal, nil
}

func (s *orderService) publishEvent(ctx context.Context, order domain.Order, action domain.AuditAction, actor string) {
	if s.events == nil {
		return
	}
	message := OrderEventMessage{
		EventID:     strings.ToLower(ulid.Make().String()),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Action:      string(action),
		Status:      string(order.Status),
		Actor:       strings.TrimSpace(actor),
		OccurredAt:  s.clock(),
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"orderId": order.ID,
			"action":  string(action),
			"error":   err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderDependency, err)
		}
	}
	return err
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

func isManagerRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(role), roleManager)
}

func orderTotal(subtotal, deliveryCharges, discount float64) float64 {
	total := subtotal + deliveryCharges - discount
	if total < 0 {
		return 0
	}
	return total
}

func defaultPaymentMethod(method domain.PaymentMethod) domain.PaymentMethod {
	if method == "" {
		return domain.PaymentMethodCash
	}
	return method
}

func defaultPaymentStatus(status domain.PaymentStatus) domain.PaymentStatus {
	if status == "" {
		return domain.PaymentStatusUnpaid
	}
	return status
}

func validateCreateCommand(cmd CreateOrderCommand) error {
	if !domain.ValidOrderType(cmd.Type) {
		return fmt.Errorf("%w: unknown order type %q", ErrOrderInvalidInput, cmd.Type)
	}
	if len(cmd.Lines) == 0 {
		return fmt.Errorf("%w: at least one order line is required", ErrOrderInvalidInput)
	}
	if err := validateLineInputs(cmd.Lines); err != nil {
		return err
	}
	if cmd.Discount < 0 {
		return fmt.Errorf("%w: discount must not be negative", ErrOrderInvalidInput)
	}
	if cmd.DeliveryCharges < 0 {
		return fmt.Errorf("%w: delivery charges must not be negative", ErrOrderInvalidInput)
	}
	if cmd.PaymentMethod != "" && !domain.ValidPaymentMethod(cmd.PaymentMethod) {
		return fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, cmd.PaymentMethod)
	}
	if cmd.PaymentStatus != "" && !domain.ValidPaymentStatus(cmd.PaymentStatus) {
		return fmt.Errorf("%w: unknown payment status %q", ErrOrderInvalidInput, cmd.PaymentStatus)
	}
	if cmd.Type == domain.OrderTypeDelivery {
		return validateDeliveryDetails(cmd.CustomerName, cmd.CustomerPhone, cmd.DeliveryAddress, cmd.DeliveryCharges)
	}
	return nil
}

func validateUpdateCommand(cmd UpdateOrderCommand) error {
	if cmd.Type != nil && !domain.ValidOrderType(*cmd.Type) {
		return fmt.Errorf("%w: unknown order type %q", ErrOrderInvalidInput, *cmd.Type)
	}
	if cmd.HasLines {
		if len(cmd.Lines) == 0 {
			return fmt.Errorf("%w: replacement order lines must not be empty", ErrOrderInvalidInput)
		}
		if err := validateLineInputs(cmd.Lines); err != nil {
			return err
		}
	}
	if cmd.Discount != nil && *cmd.Discount < 0 {
		return fmt.Errorf("%w: discount must not be negative", ErrOrderInvalidInput)
	}
	if cmd.DeliveryCharges != nil && *cmd.DeliveryCharges < 0 {
		return fmt.Errorf("%w: delivery charges must not be negative", ErrOrderInvalidInput)
	}
	if cmd.PaymentMethod != nil && !domain.ValidPaymentMethod(*cmd.PaymentMethod) {
		return fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, *cmd.PaymentMethod)
	}
	if cmd.PaymentStatus != nil && !domain.ValidPaymentStatus(*cmd.PaymentStatus) {
		return fmt.Errorf("%w: unknown payment status %q", ErrOrderInvalidInput, *cmd.PaymentStatus)
	}
	return nil
}

func validateLineInputs(lines []OrderLineInput) error {
	for i, line := range lines {
		if line.Kind != domain.LineKindItem && line.Kind != domain.LineKindDeal {
			return fmt.Errorf("%w: line %d has unknown kind %q", ErrOrderInvalidInput, i, line.Kind)
		}
		if strings.TrimSpace(line.RefID) == "" {
			return fmt.Errorf("%w: line %d is missing a catalog reference", ErrOrderInvalidInput, i)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: line %d quantity must be at least 1", ErrOrderInvalidInput, i)
		}
	}
	return nil
}

func validateDeliveryDetails(name, phone, address string, deliveryCharges float64) error {
	var missing []string
	if strings.TrimSpace(name) == "" {
		missing = append(missing, "customerName")
	}
	if strings.TrimSpace(phone) == "" {
		missing = append(missing, "customerPhone")
	}
	if strings.TrimSpace(address) == "" {
		missing = append(missing, "deliveryAddress")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: delivery orders require %s", ErrOrderInvalidInput, strings.Join(missing, ", "))
	}
	if deliveryCharges <= 0 {
		return fmt.Errorf("%w: delivery orders require positive delivery charges", ErrOrderInvalidInput)
	}
	return nil
}

// touchedFields lists which editable fields the command supplies, feeding the
// edit guard's payment-only and draft-only rules.
func touchedFields(cmd UpdateOrderCommand) []string {
	var touched []string
	if cmd.Type != nil {
		touched = append(touched, "orderType")
	}
	if cmd.HasLines {
		touched = append(touched, editFieldLines)
	}
	if cmd.CustomerName != nil {
		touched = append(touched, editFieldCustomerName)
	}
	if cmd.CustomerPhone != nil {
		touched = append(touched, editFieldCustomerPhone)
	}
	if cmd.DeliveryAddress != nil {
		touched = append(touched, editFieldDeliveryAddress)
	}
	if cmd.Discount != nil {
		touched = append(touched, editFieldDiscount)
	}
	if cmd.DeliveryCharges != nil {
		touched = append(touched, editFieldDeliveryCharges)
	}
	if cmd.PaymentMethod != nil {
		touched = append(touched, editFieldPaymentMethod)
	}
	if cmd.PaymentStatus != nil {
		touched = append(touched, editFieldPaymentStatus)
	}
	if cmd.Note != nil {
		touched = append(touched, editFieldNote)
	}
	return touched
}
