package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amber-cafe/api/internal/services"
)

type stubStatsService struct {
	reportFn func(context.Context, services.SalesReportQuery) (services.SalesReport, error)
}

func (s *stubStatsService) SalesReport(ctx context.Context, query services.SalesReportQuery) (services.SalesReport, error) {
	if s.reportFn != nil {
		return s.reportFn(ctx, query)
	}
	return services.SalesReport{}, errors.New("not implemented")
}

func newReportRouter(service services.StatsService) chi.Router {
	handler := NewReportHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/reports", handler.Routes)
	return router
}

func TestReportHandlersSalesReport(t *testing.T) {
	generatedAt := time.Date(2024, 5, 23, 14, 0, 0, 0, time.UTC)
	cycleStart := time.Date(2024, 5, 20, 6, 0, 0, 0, time.UTC)

	var captured services.SalesReportQuery
	service := &stubStatsService{
		reportFn: func(ctx context.Context, query services.SalesReportQuery) (services.SalesReport, error) {
			captured = query
			return services.SalesReport{
				Overview: services.BucketStats{
					OrderCount:     6,
					CompletedCount: 3,
					CancelledCount: 1,
					Revenue:        1900,
					ItemQuantity:   5,
					PaymentSplit: services.PaymentSplit{
						Cash:   services.PaymentBreakdown{Amount: 1300, Count: 2},
						Online: services.PaymentBreakdown{Amount: 600, Count: 1},
					},
				},
				OrderSummary: services.OrderSummary{
					ByType:   map[string]int{"dine": 2},
					ByStatus: map[string]int{"draft": 1},
				},
				TopItems: []services.ProductSales{{RefID: "itm_a", Name: "Burger", Quantity: 2, Revenue: 1000}},
				DayHistory: []services.CycleBucket{
					{
						Key:   "20-05-2024/21-05-24",
						Start: cycleStart,
						End:   cycleStart.AddDate(0, 0, 1).Add(-time.Second),
						Stats: services.BucketStats{OrderCount: 2, Revenue: 1600},
					},
				},
				Monthly:     []services.PeriodBucket{{Key: "05-2024", Stats: services.BucketStats{OrderCount: 6}}},
				Yearly:      []services.PeriodBucket{{Key: "2024", Stats: services.BucketStats{OrderCount: 6}}},
				GeneratedAt: generatedAt,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/sales?from=2024-05-01T00:00:00Z", nil)
	rr := httptest.NewRecorder()
	newReportRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.From == nil || !captured.From.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected from bound passed through, got %#v", captured.From)
	}

	var resp salesReportPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Overview.OrderCount != 6 || resp.Overview.Revenue != 1900 {
		t.Fatalf("unexpected overview: %#v", resp.Overview)
	}
	if resp.Overview.Cash.Amount != 1300 || resp.Overview.Cash.Count != 2 {
		t.Fatalf("unexpected cash split: %#v", resp.Overview.Cash)
	}
	if len(resp.DayHistory) != 1 || resp.DayHistory[0].Key != "20-05-2024/21-05-24" {
		t.Fatalf("unexpected day history: %#v", resp.DayHistory)
	}
	if len(resp.TopItems) != 1 || resp.TopItems[0].RefID != "itm_a" {
		t.Fatalf("unexpected top items: %#v", resp.TopItems)
	}
	if len(resp.Monthly) != 1 || resp.Monthly[0].Key != "05-2024" {
		t.Fatalf("unexpected monthly buckets: %#v", resp.Monthly)
	}
}

func TestReportHandlersSalesReportInvalidTimestamp(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reports/sales?from=not-a-date", nil)
	rr := httptest.NewRecorder()
	newReportRouter(&stubStatsService{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestReportHandlersSalesReportInvalidWindow(t *testing.T) {
	service := &stubStatsService{
		reportFn: func(ctx context.Context, query services.SalesReportQuery) (services.SalesReport, error) {
			return services.SalesReport{}, fmt.Errorf("%w: from must not be after to", services.ErrStatsInvalidInput)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/sales?from=2024-06-01T00:00:00Z&to=2024-05-01T00:00:00Z", nil)
	rr := httptest.NewRecorder()
	newReportRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestReportHandlersServiceUnavailable(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reports/sales", nil)
	rr := httptest.NewRecorder()
	newReportRouter(nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}
