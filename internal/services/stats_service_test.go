package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/repositories"
)

type failingWalkOrderRepository struct {
	*stubOrderRepository
	walkErr error
}

func (f *failingWalkOrderRepository) Walk(ctx context.Context, filter repositories.OrderWalkFilter, visit func(order domain.Order) error) error {
	if f.walkErr != nil {
		return f.walkErr
	}
	return f.stubOrderRepository.Walk(ctx, filter, visit)
}

func newStatsServiceForTest(t *testing.T, orders repositories.OrderRepository, now time.Time) StatsService {
	t.Helper()
	svc, err := NewStatsService(StatsServiceDeps{
		Orders: orders,
		Clock:  func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewStatsService: %v", err)
	}
	return svc
}

func seedStatsOrder(repo *stubOrderRepository, id string, order domain.Order) {
	order.ID = id
	order.OrderNumber = "ORD-AC-" + id
	repo.orders[id] = order
}

func TestStatsServiceSalesReportAggregates(t *testing.T) {
	repo := newStubOrderRepository()
	seedStatsOrder(repo, "o1", domain.Order{
		Type:          domain.OrderTypeDine,
		Status:        domain.OrderStatusFinished,
		PaymentMethod: domain.PaymentMethodCash,
		Subtotal:      1000,
		Lines: []domain.OrderLine{
			{Kind: domain.LineKindItem, RefID: "itm_a", Name: "Burger", Quantity: 2, LineTotal: 1000},
		},
		CreatedAt: time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC),
	})
	// Created before 06:00, so it belongs to the previous operating day.
	seedStatsOrder(repo, "o2", domain.Order{
		Type:            domain.OrderTypeDelivery,
		Status:          domain.OrderStatusDelivered,
		PaymentMethod:   domain.PaymentMethodOnline,
		Subtotal:        500,
		DeliveryCharges: 150,
		Discount:        50,
		Lines: []domain.OrderLine{
			{Kind: domain.LineKindDeal, RefID: "deal_x", Name: "Duo Deal", Quantity: 1, LineTotal: 500},
		},
		CreatedAt: time.Date(2024, 5, 21, 5, 59, 59, 0, time.UTC),
	})
	seedStatsOrder(repo, "o3", domain.Order{
		Type:          domain.OrderTypeTakeaway,
		Status:        domain.OrderStatusPickedUp,
		PaymentMethod: domain.PaymentMethodCash,
		Subtotal:      300,
		Lines: []domain.OrderLine{
			{Kind: domain.LineKindItem, RefID: "itm_b", Name: "Fries", Quantity: 1, LineTotal: 300},
		},
		CreatedAt: time.Date(2024, 5, 21, 6, 0, 0, 0, time.UTC),
	})
	seedStatsOrder(repo, "o4", domain.Order{
		Type:          domain.OrderTypeDine,
		Status:        domain.OrderStatusCancelled,
		PaymentMethod: domain.PaymentMethodCash,
		Subtotal:      900,
		Lines: []domain.OrderLine{
			{Kind: domain.LineKindItem, RefID: "itm_a", Name: "Burger", Quantity: 5, LineTotal: 900},
		},
		CreatedAt: time.Date(2024, 5, 22, 12, 0, 0, 0, time.UTC),
	})
	seedStatsOrder(repo, "o5", domain.Order{
		Type:          domain.OrderTypeDine,
		Status:        domain.OrderStatusPreparing,
		PaymentMethod: domain.PaymentMethodCash,
		Subtotal:      200,
		Lines: []domain.OrderLine{
			{Kind: domain.LineKindItem, RefID: "itm_b", Name: "Fries", Quantity: 1, LineTotal: 200},
		},
		CreatedAt: time.Date(2024, 5, 23, 12, 0, 0, 0, time.UTC),
	})
	seedStatsOrder(repo, "o6", domain.Order{
		Type:      domain.OrderTypeDine,
		Status:    domain.OrderStatusDraft,
		Subtotal:  100,
		CreatedAt: time.Date(2024, 5, 22, 15, 0, 0, 0, time.UTC),
	})

	now := time.Date(2024, 5, 23, 14, 0, 0, 0, time.UTC)
	svc := newStatsServiceForTest(t, repo, now)

	report, err := svc.SalesReport(context.Background(), SalesReportQuery{})
	if err != nil {
		t.Fatalf("SalesReport: %v", err)
	}

	overview := report.Overview
	if overview.OrderCount != 6 || overview.CompletedCount != 3 || overview.CancelledCount != 1 {
		t.Fatalf("overview counts wrong: %+v", overview)
	}
	if overview.Revenue != 1900 {
		t.Fatalf("revenue = %v, want 1900", overview.Revenue)
	}
	if overview.ItemQuantity != 5 {
		t.Fatalf("item quantity = %d, want 5 (draft/cancelled lines excluded)", overview.ItemQuantity)
	}
	if overview.DeliveryCharges != 150 || overview.Discount != 50 {
		t.Fatalf("completed-only charge totals wrong: %+v", overview)
	}
	if overview.PaymentSplit.Cash.Amount != 1300 || overview.PaymentSplit.Cash.Count != 2 {
		t.Fatalf("cash split wrong: %+v", overview.PaymentSplit.Cash)
	}
	if overview.PaymentSplit.Online.Amount != 600 || overview.PaymentSplit.Online.Count != 1 {
		t.Fatalf("online split wrong: %+v", overview.PaymentSplit.Online)
	}

	if report.OrderSummary.ByStatus[string(domain.OrderStatusDraft)] != 1 {
		t.Fatalf("status tally should include drafts: %+v", report.OrderSummary.ByStatus)
	}
	if report.OrderSummary.ByType[string(domain.OrderTypeDine)] != 2 {
		t.Fatalf("type distribution should exclude draft/cancelled: %+v", report.OrderSummary.ByType)
	}
	if report.OrderSummary.ByPayment[string(domain.PaymentMethodCash)] != 3 {
		t.Fatalf("payment distribution wrong: %+v", report.OrderSummary.ByPayment)
	}

	// Last completed cycle is the 22nd; the in-progress 23rd stays out.
	if len(report.DayHistory) != 3 {
		t.Fatalf("expected three day buckets, got %d", len(report.DayHistory))
	}
	if report.DayHistory[0].Key != "22-05-2024/23-05-24" {
		t.Fatalf("buckets must be most-recent-first, got %q", report.DayHistory[0].Key)
	}
	if report.DayHistory[0].Stats.OrderCount != 2 || report.DayHistory[0].Stats.Revenue != 0 {
		t.Fatalf("cancelled/draft-only bucket wrong: %+v", report.DayHistory[0].Stats)
	}
	may20 := report.DayHistory[2]
	if may20.Key != "20-05-2024/21-05-24" {
		t.Fatalf("unexpected oldest bucket key %q", may20.Key)
	}
	if may20.Stats.OrderCount != 2 {
		t.Fatalf("05:59:59 order must bucket with the previous day: %+v", may20.Stats)
	}
	if may20.Stats.Revenue != 1600 {
		t.Fatalf("20th revenue = %v, want 1600", may20.Stats.Revenue)
	}

	// Both items sold two units; the tie breaks on revenue.
	if len(report.TopItems) != 2 || report.TopItems[0].RefID != "itm_a" {
		t.Fatalf("top items wrong: %+v", report.TopItems)
	}
	if report.TopItems[0].Quantity != 2 || report.TopItems[0].Revenue != 1000 {
		t.Fatalf("top item totals wrong: %+v", report.TopItems[0])
	}
	if report.TopItems[1].RefID != "itm_b" || report.TopItems[1].Revenue != 500 {
		t.Fatalf("second item wrong: %+v", report.TopItems[1])
	}
	if len(report.TopDeals) != 1 || report.TopDeals[0].RefID != "deal_x" {
		t.Fatalf("top deals wrong: %+v", report.TopDeals)
	}

	if len(report.Monthly) != 1 || report.Monthly[0].Key != "05-2024" {
		t.Fatalf("monthly buckets wrong: %+v", report.Monthly)
	}
	if len(report.Yearly) != 1 || report.Yearly[0].Key != "2024" {
		t.Fatalf("yearly buckets wrong: %+v", report.Yearly)
	}

	if len(report.RecentOrders) != 6 || report.RecentOrders[0].ID != "o5" {
		t.Fatalf("recent orders must be newest first: %+v", report.RecentOrders)
	}
}

func TestStatsServiceSalesReportSynthesizesGapCycles(t *testing.T) {
	repo := newStubOrderRepository()
	seedStatsOrder(repo, "o1", domain.Order{
		Type:          domain.OrderTypeDine,
		Status:        domain.OrderStatusFinished,
		PaymentMethod: domain.PaymentMethodCash,
		Subtotal:      100,
		CreatedAt:     time.Date(2024, 5, 18, 12, 0, 0, 0, time.UTC),
	})
	seedStatsOrder(repo, "o2", domain.Order{
		Type:          domain.OrderTypeDine,
		Status:        domain.OrderStatusFinished,
		PaymentMethod: domain.PaymentMethodCash,
		Subtotal:      200,
		CreatedAt:     time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC),
	})

	now := time.Date(2024, 5, 23, 14, 0, 0, 0, time.UTC)
	svc := newStatsServiceForTest(t, repo, now)

	report, err := svc.SalesReport(context.Background(), SalesReportQuery{})
	if err != nil {
		t.Fatalf("SalesReport: %v", err)
	}

	if len(report.DayHistory) != 5 {
		t.Fatalf("expected five buckets from 18th to 22nd, got %d", len(report.DayHistory))
	}
	wantKeys := []string{
		"22-05-2024/23-05-24",
		"21-05-2024/22-05-24",
		"20-05-2024/21-05-24",
		"19-05-2024/20-05-24",
		"18-05-2024/19-05-24",
	}
	for i, want := range wantKeys {
		if report.DayHistory[i].Key != want {
			t.Fatalf("bucket %d key = %q, want %q", i, report.DayHistory[i].Key, want)
		}
	}
	for _, i := range []int{0, 1, 3} {
		if report.DayHistory[i].Stats.OrderCount != 0 {
			t.Fatalf("gap bucket %d should be empty: %+v", i, report.DayHistory[i].Stats)
		}
	}
}

func TestStatsServiceTopRankingTieBreaksOnRevenue(t *testing.T) {
	repo := newStubOrderRepository()
	seedStatsOrder(repo, "o1", domain.Order{
		Type:          domain.OrderTypeDine,
		Status:        domain.OrderStatusFinished,
		PaymentMethod: domain.PaymentMethodCash,
		Lines: []domain.OrderLine{
			{Kind: domain.LineKindItem, RefID: "itm_cheap", Name: "Cheap", Quantity: 3, LineTotal: 300},
			{Kind: domain.LineKindItem, RefID: "itm_dear", Name: "Dear", Quantity: 3, LineTotal: 900},
			{Kind: domain.LineKindItem, RefID: "itm_top", Name: "Top", Quantity: 5, LineTotal: 100},
		},
		CreatedAt: time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC),
	})

	svc := newStatsServiceForTest(t, repo, time.Date(2024, 5, 23, 14, 0, 0, 0, time.UTC))
	report, err := svc.SalesReport(context.Background(), SalesReportQuery{})
	if err != nil {
		t.Fatalf("SalesReport: %v", err)
	}

	got := make([]string, 0, len(report.TopItems))
	for _, sale := range report.TopItems {
		got = append(got, sale.RefID)
	}
	want := []string{"itm_top", "itm_dear", "itm_cheap"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranking = %v, want %v", got, want)
	}
}

func TestStatsServiceTopRankingTruncates(t *testing.T) {
	repo := newStubOrderRepository()
	lines := make([]domain.OrderLine, 0, 12)
	for i := 0; i < 12; i++ {
		lines = append(lines, domain.OrderLine{
			Kind:      domain.LineKindItem,
			RefID:     fmt.Sprintf("itm_%02d", i),
			Quantity:  12 - i,
			LineTotal: float64(100 * (12 - i)),
		})
	}
	seedStatsOrder(repo, "o1", domain.Order{
		Type:          domain.OrderTypeDine,
		Status:        domain.OrderStatusFinished,
		PaymentMethod: domain.PaymentMethodCash,
		Lines:         lines,
		CreatedAt:     time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC),
	})

	svc := newStatsServiceForTest(t, repo, time.Date(2024, 5, 23, 14, 0, 0, 0, time.UTC))
	report, err := svc.SalesReport(context.Background(), SalesReportQuery{})
	if err != nil {
		t.Fatalf("SalesReport: %v", err)
	}
	if len(report.TopItems) != 10 {
		t.Fatalf("expected top list capped at 10, got %d", len(report.TopItems))
	}
	if report.TopItems[0].RefID != "itm_00" {
		t.Fatalf("highest quantity should rank first, got %q", report.TopItems[0].RefID)
	}
}

func TestStatsServiceSalesReportIsDeterministic(t *testing.T) {
	repo := newStubOrderRepository()
	for i := 0; i < 20; i++ {
		seedStatsOrder(repo, fmt.Sprintf("o%02d", i), domain.Order{
			Type:          domain.OrderTypeDine,
			Status:        domain.OrderStatusFinished,
			PaymentMethod: domain.PaymentMethodCash,
			Subtotal:      float64(100 + i),
			Lines: []domain.OrderLine{
				{Kind: domain.LineKindItem, RefID: fmt.Sprintf("itm_%02d", i%7), Name: "Item", Quantity: 1 + i%3, LineTotal: float64(50 * (1 + i%3))},
			},
			CreatedAt: time.Date(2024, 5, 15+i%5, 10, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		})
	}

	svc := newStatsServiceForTest(t, repo, time.Date(2024, 5, 23, 14, 0, 0, 0, time.UTC))
	first, err := svc.SalesReport(context.Background(), SalesReportQuery{})
	if err != nil {
		t.Fatalf("SalesReport: %v", err)
	}
	second, err := svc.SalesReport(context.Background(), SalesReportQuery{})
	if err != nil {
		t.Fatalf("SalesReport: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two runs over the same order set must match")
	}
}

func TestStatsServiceSalesReportPropagatesScanFailure(t *testing.T) {
	repo := &failingWalkOrderRepository{
		stubOrderRepository: newStubOrderRepository(),
		walkErr:             errors.New("firestore unavailable"),
	}
	svc := newStatsServiceForTest(t, repo, time.Date(2024, 5, 23, 14, 0, 0, 0, time.UTC))

	_, err := svc.SalesReport(context.Background(), SalesReportQuery{})
	if !errors.Is(err, ErrOrderDependency) {
		t.Fatalf("scan failure must abort the aggregation as a dependency error, got %v", err)
	}
}

func TestStatsServiceRejectsInvertedWindow(t *testing.T) {
	svc := newStatsServiceForTest(t, newStubOrderRepository(), time.Now())
	from := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err := svc.SalesReport(context.Background(), SalesReportQuery{From: &from, To: &to})
	if !errors.Is(err, ErrStatsInvalidInput) {
		t.Fatalf("inverted window should be rejected, got %v", err)
	}
}
