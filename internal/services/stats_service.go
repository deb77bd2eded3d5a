package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/repositories"
)

const (
	defaultCycleStartHour  = 6
	defaultTopProductCount = 10
	recentOrderCount       = 10
)

// ErrStatsInvalidInput signals a malformed reporting query.
var ErrStatsInvalidInput = errors.New("stats: invalid input")

// StatsServiceDeps bundles collaborators for the reporting engine.
type StatsServiceDeps struct {
	Orders repositories.OrderRepository

	// CycleStartHour is the local hour at which an operating day begins.
	CycleStartHour int
	// TopProductCount bounds the item and deal rankings.
	TopProductCount int
	// Location is the timezone the operating day is evaluated in.
	Location *time.Location

	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type statsService struct {
	orders         repositories.OrderRepository
	cycleStartHour int
	topCount       int
	location       *time.Location
	clock          func() time.Time
	logger         func(ctx context.Context, event string, fields map[string]any)
}

// NewStatsService wires the reporting engine from its dependencies.
func NewStatsService(deps StatsServiceDeps) (StatsService, error) {
	if deps.Orders == nil {
		return nil, errors.New("stats service: order repository is required")
	}
	hour := deps.CycleStartHour
	if hour == 0 {
		hour = defaultCycleStartHour
	}
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("stats service: cycle start hour %d out of range", deps.CycleStartHour)
	}
	topCount := deps.TopProductCount
	if topCount <= 0 {
		topCount = defaultTopProductCount
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &statsService{
		orders:         deps.Orders,
		cycleStartHour: hour,
		topCount:       topCount,
		location:       location,
		clock:          clock,
		logger:         logger,
	}, nil
}

// bucketAccum collects the running figures for one bucket during the scan.
type bucketAccum struct {
	orderCount      int
	completedCount  int
	cancelledCount  int
	revenue         float64
	itemQuantity    int
	deliveryCharges float64
	discount        float64
	cashAmount      float64
	cashCount       int
	onlineAmount    float64
	onlineCount     int
}

func (b *bucketAccum) add(order domain.Order) {
	b.orderCount++
	excluded := order.Status == domain.OrderStatusDraft || order.Status == domain.OrderStatusCancelled
	if order.Status == domain.OrderStatusCancelled {
		b.cancelledCount++
	}
	if !excluded {
		for _, line := range order.Lines {
			b.itemQuantity += line.Quantity
		}
	}
	if !domain.IsCompleted(order.Status) {
		return
	}
	b.completedCount++
	revenue := order.Subtotal + order.DeliveryCharges - order.Discount
	b.revenue += revenue
	b.deliveryCharges += order.DeliveryCharges
	b.discount += order.Discount
	switch order.PaymentMethod {
	case domain.PaymentMethodCash:
		b.cashAmount += revenue
		b.cashCount++
	case domain.PaymentMethodOnline:
		b.onlineAmount += revenue
		b.onlineCount++
	}
}

func (b *bucketAccum) stats() BucketStats {
	return BucketStats{
		OrderCount:      b.orderCount,
		CompletedCount:  b.completedCount,
		CancelledCount:  b.cancelledCount,
		Revenue:         round2(b.revenue),
		ItemQuantity:    b.itemQuantity,
		DeliveryCharges: round2(b.deliveryCharges),
		Discount:        round2(b.discount),
		PaymentSplit: PaymentSplit{
			Cash:   PaymentBreakdown{Amount: round2(b.cashAmount), Count: b.cashCount},
			Online: PaymentBreakdown{Amount: round2(b.onlineAmount), Count: b.onlineCount},
		},
	}
}

// SalesReport streams every matching order once and reduces it into the full
// reporting surface. A failed scan aborts with no partial result.
func (s *statsService) SalesReport(ctx context.Context, query SalesReportQuery) (SalesReport, error) {
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return SalesReport{}, fmt.Errorf("%w: report window ends before it starts", ErrStatsInvalidInput)
	}

	overall := &bucketAccum{}
	byType := make(map[string]int)
	byStatus := make(map[string]int)
	byPayment := make(map[string]int)
	days := make(map[int64]*bucketAccum)
	months := make(map[string]*bucketAccum)
	years := make(map[string]*bucketAccum)
	items := make(map[string]*ProductSales)
	deals := make(map[string]*ProductSales)
	var recent []domain.Order

	var earliestCycle int64 = math.MaxInt64

	err := s.orders.Walk(ctx, repositories.OrderWalkFilter{CreatedFrom: query.From, CreatedTo: query.To}, func(order domain.Order) error {
		overall.add(order)
		byStatus[string(order.Status)]++

		excluded := order.Status == domain.OrderStatusDraft || order.Status == domain.OrderStatusCancelled
		if !excluded {
			byType[string(order.Type)]++
			byPayment[string(order.PaymentMethod)]++
			for _, line := range order.Lines {
				target := items
				if line.Kind == domain.LineKindDeal {
					target = deals
				}
				sale, ok := target[line.RefID]
				if !ok {
					sale = &ProductSales{RefID: line.RefID, Name: line.Name}
					target[line.RefID] = sale
				}
				sale.Quantity += line.Quantity
				sale.Revenue += line.LineTotal
			}
		}

		cycle := s.cycleDay(order.CreatedAt)
		if cycle < earliestCycle {
			earliestCycle = cycle
		}
		day, ok := days[cycle]
		if !ok {
			day = &bucketAccum{}
			days[cycle] = day
		}
		day.add(order)

		local := order.CreatedAt.In(s.location)
		monthKey := local.Format("01-2006")
		month, ok := months[monthKey]
		if !ok {
			month = &bucketAccum{}
			months[monthKey] = month
		}
		month.add(order)

		yearKey := local.Format("2006")
		year, ok := years[yearKey]
		if !ok {
			year = &bucketAccum{}
			years[yearKey] = year
		}
		year.add(order)

		recent = insertRecent(recent, order)
		return nil
	})
	if err != nil {
		s.logger(ctx, "stats.scan_failed", map[string]any{"error": err.Error()})
		return SalesReport{}, fmt.Errorf("%w: %v", ErrOrderDependency, err)
	}

	now := s.clock().In(s.location)
	report := SalesReport{
		Overview: overall.stats(),
		OrderSummary: OrderSummary{
			ByType:    byType,
			ByStatus:  byStatus,
			ByPayment: byPayment,
		},
		TopItems:     rankProducts(items, s.topCount),
		TopDeals:     rankProducts(deals, s.topCount),
		DayHistory:   s.buildDayHistory(days, earliestCycle, now),
		Monthly:      buildPeriods(months),
		Yearly:       buildPeriods(years),
		RecentOrders: recent,
		GeneratedAt:  now.UTC(),
	}
	return report, nil
}

// cycleDay maps a timestamp to its operating-day ordinal: the local calendar
// day, shifted back one when the time-of-day falls before the cycle start.
func (s *statsService) cycleDay(t time.Time) int64 {
	local := t.In(s.location)
	if local.Hour() < s.cycleStartHour {
		local = local.AddDate(0, 0, -1)
	}
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return start.Unix() / (24 * 60 * 60)
}

// buildDayHistory assembles day buckets from the earliest observed cycle up to
// the last fully completed one, synthesizing empty buckets for gap days. The
// in-progress cycle is never part of the history.
func (s *statsService) buildDayHistory(days map[int64]*bucketAccum, earliestCycle int64, now time.Time) []CycleBucket {
	if len(days) == 0 {
		return nil
	}
	lastCompleted := s.cycleDay(now) - 1
	if lastCompleted < earliestCycle {
		return nil
	}

	history := make([]CycleBucket, 0, lastCompleted-earliestCycle+1)
	for cycle := lastCompleted; cycle >= earliestCycle; cycle-- {
		accum, ok := days[cycle]
		if !ok {
			accum = &bucketAccum{}
		}
		start := s.cycleStart(cycle)
		end := start.AddDate(0, 0, 1).Add(-time.Second)
		history = append(history, CycleBucket{
			Key:   fmt.Sprintf("%s/%s", start.Format("02-01-2006"), end.Format("02-01-06")),
			Start: start,
			End:   end,
			Stats: accum.stats(),
		})
	}
	return history
}

func (s *statsService) cycleStart(cycle int64) time.Time {
	day := time.Unix(cycle*24*60*60, 0).UTC()
	return time.Date(day.Year(), day.Month(), day.Day(), s.cycleStartHour, 0, 0, 0, s.location)
}

func buildPeriods(periods map[string]*bucketAccum) []PeriodBucket {
	if len(periods) == 0 {
		return nil
	}
	keys := make([]string, 0, len(periods))
	for key := range periods {
		keys = append(keys, key)
	}
	// Keys are zero-padded fixed-width dates, so a lexicographic sort on the
	// reversed parts orders them chronologically.
	sort.Slice(keys, func(i, j int) bool {
		return periodSortKey(keys[i]) > periodSortKey(keys[j])
	})

	buckets := make([]PeriodBucket, 0, len(keys))
	for _, key := range keys {
		buckets = append(buckets, PeriodBucket{Key: key, Stats: periods[key].stats()})
	}
	return buckets
}

// periodSortKey turns "MM-YYYY" into "YYYY-MM"; bare years pass through.
func periodSortKey(key string) string {
	if len(key) == len("01-2006") && key[2] == '-' {
		return key[3:] + "-" + key[:2]
	}
	return key
}

func rankProducts(products map[string]*ProductSales, limit int) []ProductSales {
	ranked := make([]ProductSales, 0, len(products))
	for _, sale := range products {
		sale.Revenue = round2(sale.Revenue)
		ranked = append(ranked, *sale)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].RefID < ranked[j].RefID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// insertRecent keeps the newest orders sorted most-recent-first, capped at ten.
func insertRecent(recent []domain.Order, order domain.Order) []domain.Order {
	pos := sort.Search(len(recent), func(i int) bool {
		return recent[i].CreatedAt.Before(order.CreatedAt)
	})
	if pos >= recentOrderCount {
		return recent
	}
	recent = append(recent, domain.Order{})
	copy(recent[pos+1:], recent[pos:])
	recent[pos] = order
	if len(recent) > recentOrderCount {
		recent = recent[:recentOrderCount]
	}
	return recent
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
