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

const (
	orderCollection       = "orders"
	orderNumberCollection = "order_numbers"
)

// OrderRepository persists orders in Firestore with a companion collection enforcing
// order-number uniqueness.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection)
	return &OrderRepository{base: base, provider: provider}, nil
}

// Insert creates the order document together with its order-number reservation in a
// single transaction. Firestore reports AlreadyExists when either document is taken,
// which surfaces to callers as a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}
	if strings.TrimSpace(order.OrderNumber) == "" {
		return errors.New("order repository: order number is required")
	}

	doc := fromDomainOrder(order)

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}
		numberRef := client.Collection(orderNumberCollection).Doc(order.OrderNumber)
		orderRef, err := r.base.DocumentRef(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := tx.Create(numberRef, map[string]any{
			"orderRef":  order.ID,
			"createdAt": order.CreatedAt,
		}); err != nil {
			return err
		}
		return tx.Create(orderRef, doc)
	})
}

// Update overwrites the order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}
	_, err := r.base.Set(ctx, order.ID, fromDomainOrder(order))
	return err
}

// Mutate loads the order in a transaction, applies fn, and writes the result back.
// Errors returned by fn abort the transaction unchanged.
func (r *OrderRepository) Mutate(ctx context.Context, orderID string, fn func(order *domain.Order) error) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	if fn == nil {
		return domain.Order{}, errors.New("order repository: mutate function is required")
	}

	var mutated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			return err
		}
		decoded, err := r.base.Decode(snap)
		if err != nil {
			return err
		}
		order := toDomainOrder(decoded.ID, decoded.Data)
		if err := fn(&order); err != nil {
			return err
		}
		mutated = order
		return tx.Set(orderRef, fromDomainOrder(order))
	})
	if err != nil {
		return domain.Order{}, err
	}
	return mutated, nil
}

// Delete removes the order and releases its order-number reservation.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			return err
		}
		decoded, err := r.base.Decode(snap)
		if err != nil {
			return err
		}
		if number := strings.TrimSpace(decoded.Data.OrderNumber); number != "" {
			client, err := r.provider.Client(ctx)
			if err != nil {
				return err
			}
			if err := tx.Delete(client.Collection(orderNumberCollection).Doc(number)); err != nil {
				return err
			}
		}
		return tx.Delete(orderRef)
	})
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data), nil
}

// List returns orders matching the filter ordered by most recent creation.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
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
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statusFilters := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		if trimmed := strings.TrimSpace(string(status)); trimmed != "" {
			statusFilters = append(statusFilters, trimmed)
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if len(statusFilters) == 1 {
			q = q.Where("status", "==", statusFilters[0])
		} else if len(statusFilters) > 1 {
			// Firestore in clause supports up to 10 values.
			if len(statusFilters) > 10 {
				statusFilters = statusFilters[:10]
			}
			q = q.Where("status", "in", statusFilters)
		}
		if filter.Type != "" {
			q = q.Where("type", "==", string(filter.Type))
		}
		if filter.PaymentStatus != "" {
			q = q.Where("paymentStatus", "==", string(filter.PaymentStatus))
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
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
		return domain.CursorPage[domain.Order]{}, err
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

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainOrder(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Order]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// Walk streams every order in the creation-time window to visit, oldest first.
func (r *OrderRepository) Walk(ctx context.Context, filter repositories.OrderWalkFilter, visit func(order domain.Order) error) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if visit == nil {
		return errors.New("order repository: visit function is required")
	}

	return r.base.Walk(ctx, func(q firestore.Query) firestore.Query {
		if filter.CreatedFrom != nil {
			q = q.Where("createdAt", ">=", filter.CreatedFrom.UTC())
		}
		if filter.CreatedTo != nil {
			q = q.Where("createdAt", "<=", filter.CreatedTo.UTC())
		}
		return q.OrderBy("createdAt", firestore.Asc)
	}, func(doc pfirestore.Document[orderDocument]) error {
		return visit(toDomainOrder(doc.ID, doc.Data))
	})
}

type orderDocument struct {
	OrderNumber     string              `firestore:"orderNumber"`
	Type            string              `firestore:"type"`
	Status          string              `firestore:"status"`
	Lines           []orderLineDocument `firestore:"lines"`
	CustomerName    string              `firestore:"customerName,omitempty"`
	CustomerPhone   string              `firestore:"customerPhone,omitempty"`
	DeliveryAddress string              `firestore:"deliveryAddress,omitempty"`
	Subtotal        float64             `firestore:"subtotal"`
	Discount        float64             `firestore:"discount"`
	DeliveryCharges float64             `firestore:"deliveryCharges"`
	Total           float64             `firestore:"total"`
	PaymentMethod   string              `firestore:"paymentMethod"`
	PaymentStatus   string              `firestore:"paymentStatus"`
	Note            string              `firestore:"note,omitempty"`
	CreatedBy       string              `firestore:"createdBy"`
	UpdatedBy       string              `firestore:"updatedBy,omitempty"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
	CancelledAt     *time.Time          `firestore:"cancelledAt,omitempty"`
	CancelReason    string              `firestore:"cancelReason,omitempty"`
}

type orderLineDocument struct {
	Kind      string  `firestore:"kind"`
	RefID     string  `firestore:"refId"`
	Name      string  `firestore:"name"`
	UnitPrice float64 `firestore:"unitPrice"`
	Quantity  int     `firestore:"quantity"`
	LineTotal float64 `firestore:"lineTotal"`
}

func fromDomainOrder(order domain.Order) orderDocument {
	lines := make([]orderLineDocument, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineDocument{
			Kind:      string(line.Kind),
			RefID:     line.RefID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}

	doc := orderDocument{
		OrderNumber:     order.OrderNumber,
		Type:            string(order.Type),
		Status:          string(order.Status),
		Lines:           lines,
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		DeliveryAddress: order.DeliveryAddress,
		Subtotal:        order.Subtotal,
		Discount:        order.Discount,
		DeliveryCharges: order.DeliveryCharges,
		Total:           order.Total,
		PaymentMethod:   string(order.PaymentMethod),
		PaymentStatus:   string(order.PaymentStatus),
		Note:            order.Note,
		CreatedBy:       order.CreatedBy,
		UpdatedBy:       order.UpdatedBy,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
		CancelReason:    order.CancelReason,
	}
	if order.CancelledAt != nil {
		cancelled := order.CancelledAt.UTC()
		doc.CancelledAt = &cancelled
	}
	return doc
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	lines := make([]domain.OrderLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, domain.OrderLine{
			Kind:      domain.LineKind(line.Kind),
			RefID:     line.RefID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}

	return domain.Order{
		ID:              id,
		OrderNumber:     doc.OrderNumber,
		Type:            domain.OrderType(doc.Type),
		Status:          domain.OrderStatus(doc.Status),
		Lines:           lines,
		CustomerName:    doc.CustomerName,
		CustomerPhone:   doc.CustomerPhone,
		DeliveryAddress: doc.DeliveryAddress,
		Subtotal:        doc.Subtotal,
		Discount:        doc.Discount,
		DeliveryCharges: doc.DeliveryCharges,
		Total:           doc.Total,
		PaymentMethod:   domain.PaymentMethod(doc.PaymentMethod),
		PaymentStatus:   domain.PaymentStatus(doc.PaymentStatus),
		Note:            doc.Note,
		CreatedBy:       doc.CreatedBy,
		UpdatedBy:       doc.UpdatedBy,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
		CancelledAt:     doc.CancelledAt,
		CancelReason:    doc.CancelReason,
	}
}
