package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/repositories"
)

type testRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e testRepoError) Error() string       { return e.msg }
func (e testRepoError) IsNotFound() bool    { return e.notFound }
func (e testRepoError) IsConflict() bool    { return e.conflict }
func (e testRepoError) IsUnavailable() bool { return e.unavailable }

type stubOrderRepository struct {
	orders     map[string]domain.Order
	insertErrs []error
	inserted   []domain.Order
	deleted    []string
}

func newStubOrderRepository() *stubOrderRepository {
	return &stubOrderRepository{orders: make(map[string]domain.Order)}
}

func (s *stubOrderRepository) Insert(_ context.Context, order domain.Order) error {
	if len(s.insertErrs) > 0 {
		err := s.insertErrs[0]
		s.insertErrs = s.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	s.inserted = append(s.inserted, order)
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepository) Update(_ context.Context, order domain.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepository) Mutate(_ context.Context, orderID string, fn func(order *domain.Order) error) (domain.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, testRepoError{msg: "order not found", notFound: true}
	}
	if err := fn(&order); err != nil {
		return domain.Order{}, err
	}
	s.orders[orderID] = order
	return order, nil
}

func (s *stubOrderRepository) Delete(_ context.Context, orderID string) error {
	if _, ok := s.orders[orderID]; !ok {
		return testRepoError{msg: "order not found", notFound: true}
	}
	delete(s.orders, orderID)
	s.deleted = append(s.deleted, orderID)
	return nil
}

func (s *stubOrderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, testRepoError{msg: "order not found", notFound: true}
	}
	return order, nil
}

func (s *stubOrderRepository) List(_ context.Context, _ repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	page := domain.CursorPage[domain.Order]{}
	for _, order := range s.orders {
		page.Items = append(page.Items, order)
	}
	return page, nil
}

func (s *stubOrderRepository) Walk(_ context.Context, _ repositories.OrderWalkFilter, visit func(order domain.Order) error) error {
	for _, order := range s.orders {
		if err := visit(order); err != nil {
			return err
		}
	}
	return nil
}

type stubMenuItemRepository struct {
	items map[string]domain.MenuItem
}

func (s *stubMenuItemRepository) Insert(_ context.Context, item domain.MenuItem) error { return nil }
func (s *stubMenuItemRepository) Update(_ context.Context, item domain.MenuItem) error { return nil }
func (s *stubMenuItemRepository) Delete(_ context.Context, _ string) error             { return nil }

func (s *stubMenuItemRepository) FindByID(_ context.Context, itemID string) (domain.MenuItem, error) {
	item, ok := s.items[itemID]
	if !ok {
		return domain.MenuItem{}, testRepoError{msg: "menu item not found", notFound: true}
	}
	return item, nil
}

func (s *stubMenuItemRepository) FindByIDs(_ context.Context, itemIDs []string) (map[string]domain.MenuItem, error) {
	found := make(map[string]domain.MenuItem)
	for _, id := range itemIDs {
		if item, ok := s.items[id]; ok {
			found[id] = item
		}
	}
	return found, nil
}

func (s *stubMenuItemRepository) List(_ context.Context, _ repositories.MenuItemFilter) (domain.CursorPage[domain.MenuItem], error) {
	return domain.CursorPage[domain.MenuItem]{}, nil
}

type stubDealRepository struct {
	deals map[string]domain.Deal
}

func (s *stubDealRepository) Insert(_ context.Context, deal domain.Deal) error { return nil }
func (s *stubDealRepository) Update(_ context.Context, deal domain.Deal) error { return nil }
func (s *stubDealRepository) Delete(_ context.Context, _ string) error         { return nil }

func (s *stubDealRepository) FindByID(_ context.Context, dealID string) (domain.Deal, error) {
	deal, ok := s.deals[dealID]
	if !ok {
		return domain.Deal{}, testRepoError{msg: "deal not found", notFound: true}
	}
	return deal, nil
}

func (s *stubDealRepository) FindByIDs(_ context.Context, dealIDs []string) (map[string]domain.Deal, error) {
	found := make(map[string]domain.Deal)
	for _, id := range dealIDs {
		if deal, ok := s.deals[id]; ok {
			found[id] = deal
		}
	}
	return found, nil
}

func (s *stubDealRepository) List(_ context.Context, _ repositories.DealFilter) (domain.CursorPage[domain.Deal], error) {
	return domain.CursorPage[domain.Deal]{}, nil
}

type recordingAuditService struct {
	records []AuditLogRecord
}

func (r *recordingAuditService) Record(_ context.Context, record AuditLogRecord) {
	r.records = append(r.records, record)
}

func (r *recordingAuditService) List(_ context.Context, _ AuditLogListFilter) (domain.CursorPage[AuditLogEntry], error) {
	return domain.CursorPage[AuditLogEntry]{}, nil
}

func (r *recordingAuditService) lastAction(t *testing.T) AuditLogRecord {
	t.Helper()
	if len(r.records) == 0 {
		t.Fatalf("expected at least one audit record")
	}
	return r.records[len(r.records)-1]
}

type recordingEventPublisher struct {
	messages []OrderEventMessage
	err      error
}

func (r *recordingEventPublisher) PublishOrderEvent(_ context.Context, message OrderEventMessage) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.messages = append(r.messages, message)
	return fmt.Sprintf("msg-%d", len(r.messages)), nil
}

type orderServiceFixture struct {
	svc       OrderService
	orders    *stubOrderRepository
	menuItems *stubMenuItemRepository
	deals     *stubDealRepository
	audit     *recordingAuditService
	events    *recordingEventPublisher
}

func newOrderServiceFixture(t *testing.T, mutate func(deps *OrderServiceDeps)) orderServiceFixture {
	t.Helper()

	orders := newStubOrderRepository()
	menuItems := &stubMenuItemRepository{items: map[string]domain.MenuItem{
		"itm_burger": {ID: "itm_burger", Name: "Smash Burger", Price: 500, Available: true},
		"itm_fries":  {ID: "itm_fries", Name: "Fries", Price: 250, Available: true},
		"itm_off":    {ID: "itm_off", Name: "Retired Special", Price: 400, Available: false},
	}}
	deals := &stubDealRepository{deals: map[string]domain.Deal{
		"deal_duo": {ID: "deal_duo", Name: "Duo Deal", Price: 900, Available: true},
	}}
	audit := &recordingAuditService{}
	events := &recordingEventPublisher{}

	idSeq := 0
	numberSeq := 0
	deps := OrderServiceDeps{
		Orders:    orders,
		MenuItems: menuItems,
		Deals:     deals,
		Audit:     audit,
		Events:    events,
		Clock:     func() time.Time { return time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC) },
		IDGenerator: func() string {
			idSeq++
			return fmt.Sprintf("ord_%03d", idSeq)
		},
		NumberGenerator: func(digits int) string {
			numberSeq++
			return fmt.Sprintf("%0*d", digits, numberSeq)
		},
	}
	if mutate != nil {
		mutate(&deps)
	}

	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return orderServiceFixture{svc: svc, orders: orders, menuItems: menuItems, deals: deals, audit: audit, events: events}
}

func (f orderServiceFixture) seedOrder(t *testing.T, order domain.Order) domain.Order {
	t.Helper()
	if order.ID == "" {
		order.ID = "ord_seed"
	}
	if order.OrderNumber == "" {
		order.OrderNumber = "ORD-AC-99999"
	}
	f.orders.orders[order.ID] = order
	return order
}

func TestOrderServiceCreateSnapshotsPricesAndComputesTotal(t *testing.T) {
	f := newOrderServiceFixture(t, nil)

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Type: domain.OrderTypeDelivery,
		Lines: []OrderLineInput{
			{Kind: domain.LineKindItem, RefID: "itm_burger", Quantity: 2},
		},
		CustomerName:    "Ali Raza",
		CustomerPhone:   "03001234567",
		DeliveryAddress: "12 Canal Road",
		Discount:        50,
		DeliveryCharges: 150,
		Actor:           "user-1",
		ActorRole:       "user",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if order.Status != domain.OrderStatusDraft {
		t.Fatalf("new orders start in draft, got %s", order.Status)
	}
	if order.Subtotal != 1000 {
		t.Fatalf("subtotal = %v, want 1000", order.Subtotal)
	}
	if order.Total != 1100 {
		t.Fatalf("total = %v, want 1100", order.Total)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-AC-") || len(order.OrderNumber) != len("ORD-AC-")+5 {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	line := order.Lines[0]
	if line.Name != "Smash Burger" || line.UnitPrice != 500 || line.LineTotal != 1000 {
		t.Fatalf("line snapshot wrong: %+v", line)
	}

	record := f.audit.lastAction(t)
	if record.Action != domain.AuditActionOrderCreated {
		t.Fatalf("expected created audit record, got %s", record.Action)
	}
	if len(f.events.messages) != 1 || f.events.messages[0].Action != string(domain.AuditActionOrderCreated) {
		t.Fatalf("expected one created event, got %+v", f.events.messages)
	}
}

func TestOrderServiceCreateTotalFloorsAtZero(t *testing.T) {
	f := newOrderServiceFixture(t, nil)

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Type:     domain.OrderTypeDine,
		Lines:    []OrderLineInput{{Kind: domain.LineKindItem, RefID: "itm_fries", Quantity: 1}},
		Discount: 1000,
		Actor:    "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.Total != 0 {
		t.Fatalf("total should floor at zero, got %v", order.Total)
	}
}

func TestOrderServiceCreateKeepsDuplicateLinesSeparate(t *testing.T) {
	f := newOrderServiceFixture(t, nil)

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Type: domain.OrderTypeDine,
		Lines: []OrderLineInput{
			{Kind: domain.LineKindItem, RefID: "itm_burger", Quantity: 1},
			{Kind: domain.LineKindItem, RefID: "itm_burger", Quantity: 2},
		},
		Actor: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("duplicate references must stay separate lines, got %d", len(order.Lines))
	}
	if order.Subtotal != 1500 {
		t.Fatalf("subtotal = %v, want 1500", order.Subtotal)
	}
}

func TestOrderServiceCreateDeliveryRequiresCustomerDetails(t *testing.T) {
	f := newOrderServiceFixture(t, nil)

	cmd := CreateOrderCommand{
		Type:            domain.OrderTypeDelivery,
		Lines:           []OrderLineInput{{Kind: domain.LineKindItem, RefID: "itm_burger", Quantity: 1}},
		CustomerName:    "Ali Raza",
		CustomerPhone:   "03001234567",
		DeliveryCharges: 100,
		Actor:           "user-1",
	}
	if _, err := f.svc.Create(context.Background(), cmd); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("missing address should fail validation, got %v", err)
	} else if !strings.Contains(err.Error(), "deliveryAddress") {
		t.Fatalf("error should name the missing field, got %v", err)
	}

	cmd.Type = domain.OrderTypeDine
	if _, err := f.svc.Create(context.Background(), cmd); err != nil {
		t.Fatalf("same payload as dine should pass: %v", err)
	}
}

func TestOrderServiceCreateDeliveryRequiresPositiveCharges(t *testing.T) {
	f := newOrderServiceFixture(t, nil)

	_, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Type:            domain.OrderTypeDelivery,
		Lines:           []OrderLineInput{{Kind: domain.LineKindItem, RefID: "itm_burger", Quantity: 1}},
		CustomerName:    "Ali Raza",
		CustomerPhone:   "03001234567",
		DeliveryAddress: "12 Canal Road",
		DeliveryCharges: 0,
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("zero delivery charges should fail, got %v", err)
	}
}

func TestOrderServiceCreateRejectsUnavailableCatalogEntry(t *testing.T) {
	f := newOrderServiceFixture(t, nil)

	_, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Type:  domain.OrderTypeDine,
		Lines: []OrderLineInput{{Kind: domain.LineKindItem, RefID: "itm_off", Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("unavailable item should be rejected, got %v", err)
	}

	_, err = f.svc.Create(context.Background(), CreateOrderCommand{
		Type:  domain.OrderTypeDine,
		Lines: []OrderLineInput{{Kind: domain.LineKindItem, RefID: "itm_ghost", Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("unknown item should map to not found, got %v", err)
	}
}

func TestOrderServiceCreateRetriesOrderNumberCollisions(t *testing.T) {
	f := newOrderServiceFixture(t, func(deps *OrderServiceDeps) {
		deps.NumberAttempts = 5
	})
	f.orders.insertErrs = []error{
		testRepoError{msg: "number taken", conflict: true},
		testRepoError{msg: "number taken", conflict: true},
	}

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Type:  domain.OrderTypeDine,
		Lines: []OrderLineInput{{Kind: domain.LineKindItem, RefID: "itm_burger", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Create should survive two collisions: %v", err)
	}
	if order.OrderNumber != "ORD-AC-00003" {
		t.Fatalf("expected third generated number, got %q", order.OrderNumber)
	}
}

func TestOrderServiceCreateFailsHardAfterRetryBudget(t *testing.T) {
	f := newOrderServiceFixture(t, func(deps *OrderServiceDeps) {
		deps.NumberAttempts = 3
	})
	f.orders.insertErrs = []error{
		testRepoError{msg: "number taken", conflict: true},
		testRepoError{msg: "number taken", conflict: true},
		testRepoError{msg: "number taken", conflict: true},
	}

	_, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Type:  domain.OrderTypeDine,
		Lines: []OrderLineInput{{Kind: domain.LineKindItem, RefID: "itm_burger", Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("exhausted retries should surface a conflict, got %v", err)
	}
	if len(f.audit.records) != 0 {
		t.Fatalf("failed create must not leave audit records")
	}
}

func TestOrderServiceTransitionForwardAnyRole(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusDraft,
	})

	result, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:   seeded.ID,
		Target:    domain.OrderStatusPreparing,
		Actor:     "user-1",
		ActorRole: "user",
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if result.Order.Status != domain.OrderStatusPreparing {
		t.Fatalf("status = %s, want preparing", result.Order.Status)
	}
	if result.WasOverride {
		t.Fatalf("forward move must not be an override")
	}

	record := f.audit.lastAction(t)
	if record.Action != domain.AuditActionOrderStatusChanged {
		t.Fatalf("expected status-changed record, got %s", record.Action)
	}
	if record.FromStatus != domain.OrderStatusDraft || record.ToStatus != domain.OrderStatusPreparing {
		t.Fatalf("record status pair wrong: %+v", record)
	}
	if len(f.events.messages) != 1 {
		t.Fatalf("expected one published event, got %d", len(f.events.messages))
	}
}

func TestOrderServiceTransitionRejectsSkip(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusDraft,
	})

	_, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:   seeded.ID,
		Target:    domain.OrderStatusReady,
		ActorRole: "manager",
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("skipping a step should be rejected, got %v", err)
	}
	if !strings.Contains(err.Error(), string(domain.OrderStatusPreparing)) {
		t.Fatalf("rejection should name the allowed next status, got %v", err)
	}
	if len(f.audit.records) != 0 {
		t.Fatalf("rejected transition must not audit")
	}
}

func TestOrderServiceManagerReopensFinishedOrder(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusFinished,
	})

	result, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:   seeded.ID,
		Target:    domain.OrderStatusReady,
		Reason:    "wrong table billed",
		Actor:     "mgr-1",
		ActorRole: "manager",
	})
	if err != nil {
		t.Fatalf("manager reopen should succeed: %v", err)
	}
	if result.Order.Status != domain.OrderStatusReady {
		t.Fatalf("status = %s, want ready", result.Order.Status)
	}
	if !result.WasOverride {
		t.Fatalf("reopen result must flag the override")
	}

	record := f.audit.lastAction(t)
	if record.Action != domain.AuditActionOrderReopened {
		t.Fatalf("expected reopened record, got %s", record.Action)
	}
	if record.FromStatus != domain.OrderStatusFinished || record.ToStatus != domain.OrderStatusReady {
		t.Fatalf("record status pair wrong: %+v", record)
	}
	if override, _ := record.Details["isOverride"].(bool); !override {
		t.Fatalf("reopen record must flag the override")
	}
}

func TestOrderServiceBackwardMoveRejectedForUser(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusPreparing,
	})

	_, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:   seeded.ID,
		Target:    domain.OrderStatusDraft,
		Reason:    "nope",
		ActorRole: "user",
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("user backward move should be rejected, got %v", err)
	}
}

func TestOrderServiceReopenRequiresReason(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusPreparing,
	})

	_, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:   seeded.ID,
		Target:    domain.OrderStatusDraft,
		ActorRole: "manager",
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("reopen without a reason should fail, got %v", err)
	}
}

func TestOrderServiceCancelRecordsDistinctEvent(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDelivery,
		Status: domain.OrderStatusOutForDelivery,
	})

	updated, err := f.svc.Cancel(context.Background(), CancelOrderCommand{
		OrderID:   seeded.ID,
		Reason:    "customer unreachable",
		Actor:     "user-2",
		ActorRole: "user",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", updated.Status)
	}
	if updated.CancelledAt == nil || updated.CancelReason != "customer unreachable" {
		t.Fatalf("cancellation metadata missing: %+v", updated)
	}

	record := f.audit.lastAction(t)
	if record.Action != domain.AuditActionOrderCancelled {
		t.Fatalf("expected cancelled record, got %s", record.Action)
	}
	if override, _ := record.Details["isOverride"].(bool); override {
		t.Fatalf("cancellation must not be recorded as override")
	}
}

func TestOrderServiceCancelRespectsManagerPolicy(t *testing.T) {
	f := newOrderServiceFixture(t, func(deps *OrderServiceDeps) {
		deps.CancellationPolicy = CancellationPolicyManager
	})
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusPreparing,
	})

	_, err := f.svc.Cancel(context.Background(), CancelOrderCommand{
		OrderID:   seeded.ID,
		Reason:    "mistake",
		ActorRole: "user",
	})
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("manager-only policy should reject users, got %v", err)
	}

	if _, err := f.svc.Cancel(context.Background(), CancelOrderCommand{
		OrderID:   seeded.ID,
		Reason:    "mistake",
		ActorRole: "manager",
	}); err != nil {
		t.Fatalf("manager cancel should pass: %v", err)
	}
}

func TestOrderServiceCancelFinishedOrderRejected(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusFinished,
	})

	_, err := f.svc.Cancel(context.Background(), CancelOrderCommand{
		OrderID:   seeded.ID,
		Reason:    "too late",
		ActorRole: "manager",
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("finished orders cannot be cancelled, got %v", err)
	}
}

func TestOrderServiceUpdatePaymentStatusAlwaysAllowed(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:            "ord_seed",
		Type:          domain.OrderTypeDine,
		Status:        domain.OrderStatusReady,
		Subtotal:      500,
		PaymentStatus: domain.PaymentStatusUnpaid,
	})

	paid := domain.PaymentStatusPaid
	updated, err := f.svc.Update(context.Background(), UpdateOrderCommand{
		OrderID:       seeded.ID,
		PaymentStatus: &paid,
		Actor:         "user-1",
		ActorRole:     "user",
	})
	if err != nil {
		t.Fatalf("payment-status-only update should pass: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("payment status not applied: %+v", updated)
	}
}

func TestOrderServiceUpdateNonDraftRejectedForUser(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusPreparing,
	})

	discount := 25.0
	_, err := f.svc.Update(context.Background(), UpdateOrderCommand{
		OrderID:   seeded.ID,
		Discount:  &discount,
		ActorRole: "user",
	})
	if !errors.Is(err, ErrOrderEditForbidden) {
		t.Fatalf("user edit of preparing order should be forbidden, got %v", err)
	}
}

func TestOrderServiceUpdatePreparingManagerGetsReopenHint(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusPreparing,
	})

	discount := 25.0
	_, err := f.svc.Update(context.Background(), UpdateOrderCommand{
		OrderID:   seeded.ID,
		Discount:  &discount,
		ActorRole: "manager",
	})
	if !errors.Is(err, ErrOrderEditForbidden) {
		t.Fatalf("manager in-place edit should be forbidden, got %v", err)
	}
	if !strings.Contains(err.Error(), "reopen") {
		t.Fatalf("error should hint at the reopen flow, got %v", err)
	}
}

func TestOrderServiceUpdateReplacesLinesWithFreshSnapshots(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusDraft,
		Lines: []domain.OrderLine{
			{Kind: domain.LineKindItem, RefID: "itm_burger", Name: "Smash Burger", UnitPrice: 450, Quantity: 1, LineTotal: 450},
		},
		Subtotal: 450,
		Total:    450,
	})

	// Catalog price moved since the original snapshot.
	updated, err := f.svc.Update(context.Background(), UpdateOrderCommand{
		OrderID:  seeded.ID,
		HasLines: true,
		Lines: []OrderLineInput{
			{Kind: domain.LineKindItem, RefID: "itm_burger", Quantity: 1},
			{Kind: domain.LineKindDeal, RefID: "deal_duo", Quantity: 1},
		},
		Actor:     "user-1",
		ActorRole: "user",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updated.Lines) != 2 {
		t.Fatalf("expected two replacement lines, got %d", len(updated.Lines))
	}
	if updated.Lines[0].UnitPrice != 500 {
		t.Fatalf("replacement line should carry the fresh price, got %v", updated.Lines[0].UnitPrice)
	}
	if updated.Subtotal != 1400 || updated.Total != 1400 {
		t.Fatalf("totals not recomputed: subtotal=%v total=%v", updated.Subtotal, updated.Total)
	}
}

func TestOrderServiceUpdateDoesNotTouchStoredSnapshotsElsewhere(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusDraft,
		Lines: []domain.OrderLine{
			{Kind: domain.LineKindItem, RefID: "itm_burger", Name: "Smash Burger", UnitPrice: 450, Quantity: 1, LineTotal: 450},
		},
		Subtotal: 450,
	})

	note := "extra ketchup"
	updated, err := f.svc.Update(context.Background(), UpdateOrderCommand{
		OrderID:   seeded.ID,
		Note:      &note,
		ActorRole: "user",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Lines[0].UnitPrice != 450 {
		t.Fatalf("untouched lines must keep their historical price, got %v", updated.Lines[0].UnitPrice)
	}
}

func TestOrderServiceDeleteRequiresManager(t *testing.T) {
	f := newOrderServiceFixture(t, nil)
	seeded := f.seedOrder(t, domain.Order{
		ID:     "ord_seed",
		Type:   domain.OrderTypeDine,
		Status: domain.OrderStatusFinished,
	})

	err := f.svc.Delete(context.Background(), DeleteOrderCommand{OrderID: seeded.ID, ActorRole: "user"})
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("user delete should be forbidden, got %v", err)
	}

	if err := f.svc.Delete(context.Background(), DeleteOrderCommand{OrderID: seeded.ID, Actor: "mgr-1", ActorRole: "manager"}); err != nil {
		t.Fatalf("manager delete should pass: %v", err)
	}
	if len(f.orders.deleted) != 1 {
		t.Fatalf("expected one deletion, got %d", len(f.orders.deleted))
	}

	record := f.audit.lastAction(t)
	if record.Action != domain.AuditActionOrderDeleted {
		t.Fatalf("expected deleted record, got %s", record.Action)
	}
}

func TestOrderServiceGetMapsNotFound(t *testing.T) {
	f := newOrderServiceFixture(t, nil)

	_, err := f.svc.Get(context.Background(), "ord_missing")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("missing order should map to not found, got %v", err)
	}
}
