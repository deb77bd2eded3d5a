package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amber-cafe/api/internal/platform/auth"
	"github.com/amber-cafe/api/internal/platform/httpx"
	"github.com/amber-cafe/api/internal/services"
)

// ReportHandlers serves the sales reporting endpoints.
type ReportHandlers struct {
	authn *auth.Authenticator
	stats services.StatsService
}

// NewReportHandlers constructs a new ReportHandlers instance.
func NewReportHandlers(authn *auth.Authenticator, stats services.StatsService) *ReportHandlers {
	return &ReportHandlers{
		authn: authn,
		stats: stats,
	}
}

// Routes registers the /reports endpoints.
func (h *ReportHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/sales", h.salesReport)
}

func (h *ReportHandlers) salesReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stats == nil {
		httpx.WriteError(ctx, w, httpx.NewError("stats_service_unavailable", "stats service unavailable", http.StatusServiceUnavailable))
		return
	}

	var query services.SalesReportQuery
	params := r.URL.Query()
	if raw := strings.TrimSpace(params.Get("from")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		query.From = &ts
	}
	if raw := strings.TrimSpace(params.Get("to")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		query.To = &ts
	}

	report, err := h.stats.SalesReport(ctx, query)
	if err != nil {
		writeReportError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSalesReportPayload(report))
}

// Response payloads ----------------------------------------------------------

type paymentBreakdownPayload struct {
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

type bucketStatsPayload struct {
	OrderCount      int                     `json:"order_count"`
	CompletedCount  int                     `json:"completed_count"`
	CancelledCount  int                     `json:"cancelled_count"`
	Revenue         float64                 `json:"revenue"`
	ItemQuantity    int                     `json:"item_quantity"`
	DeliveryCharges float64                 `json:"delivery_charges"`
	Discount        float64                 `json:"discount"`
	Cash            paymentBreakdownPayload `json:"cash"`
	Online          paymentBreakdownPayload `json:"online"`
}

type cycleBucketPayload struct {
	Key   string             `json:"key"`
	Start string             `json:"start"`
	End   string             `json:"end"`
	Stats bucketStatsPayload `json:"stats"`
}

type periodBucketPayload struct {
	Key   string             `json:"key"`
	Stats bucketStatsPayload `json:"stats"`
}

type productSalesPayload struct {
	RefID    string  `json:"ref_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type orderSummaryReportPayload struct {
	ByType    map[string]int `json:"by_type"`
	ByStatus  map[string]int `json:"by_status"`
	ByPayment map[string]int `json:"by_payment"`
}

type salesReportPayload struct {
	Overview     bucketStatsPayload        `json:"overview"`
	OrderSummary orderSummaryReportPayload `json:"order_summary"`
	TopItems     []productSalesPayload     `json:"top_items"`
	TopDeals     []productSalesPayload     `json:"top_deals"`
	DayHistory   []cycleBucketPayload      `json:"day_history"`
	Monthly      []periodBucketPayload     `json:"monthly"`
	Yearly       []periodBucketPayload     `json:"yearly"`
	RecentOrders []orderSummaryPayload     `json:"recent_orders"`
	GeneratedAt  string                    `json:"generated_at"`
}

func buildSalesReportPayload(report services.SalesReport) salesReportPayload {
	payload := salesReportPayload{
		Overview: buildBucketStatsPayload(report.Overview),
		OrderSummary: orderSummaryReportPayload{
			ByType:    report.OrderSummary.ByType,
			ByStatus:  report.OrderSummary.ByStatus,
			ByPayment: report.OrderSummary.ByPayment,
		},
		TopItems:     buildProductSalesPayloads(report.TopItems),
		TopDeals:     buildProductSalesPayloads(report.TopDeals),
		DayHistory:   make([]cycleBucketPayload, 0, len(report.DayHistory)),
		Monthly:      buildPeriodBucketPayloads(report.Monthly),
		Yearly:       buildPeriodBucketPayloads(report.Yearly),
		RecentOrders: make([]orderSummaryPayload, 0, len(report.RecentOrders)),
		GeneratedAt:  formatTimestamp(report.GeneratedAt),
	}
	for _, bucket := range report.DayHistory {
		payload.DayHistory = append(payload.DayHistory, cycleBucketPayload{
			Key:   bucket.Key,
			Start: formatTimestamp(bucket.Start),
			End:   formatTimestamp(bucket.End),
			Stats: buildBucketStatsPayload(bucket.Stats),
		})
	}
	for _, order := range report.RecentOrders {
		payload.RecentOrders = append(payload.RecentOrders, buildOrderSummary(order))
	}
	return payload
}

func buildBucketStatsPayload(stats services.BucketStats) bucketStatsPayload {
	return bucketStatsPayload{
		OrderCount:      stats.OrderCount,
		CompletedCount:  stats.CompletedCount,
		CancelledCount:  stats.CancelledCount,
		Revenue:         stats.Revenue,
		ItemQuantity:    stats.ItemQuantity,
		DeliveryCharges: stats.DeliveryCharges,
		Discount:        stats.Discount,
		Cash: paymentBreakdownPayload{
			Amount: stats.PaymentSplit.Cash.Amount,
			Count:  stats.PaymentSplit.Cash.Count,
		},
		Online: paymentBreakdownPayload{
			Amount: stats.PaymentSplit.Online.Amount,
			Count:  stats.PaymentSplit.Online.Count,
		},
	}
}

func buildProductSalesPayloads(products []services.ProductSales) []productSalesPayload {
	payloads := make([]productSalesPayload, 0, len(products))
	for _, product := range products {
		payloads = append(payloads, productSalesPayload{
			RefID:    product.RefID,
			Name:     product.Name,
			Quantity: product.Quantity,
			Revenue:  product.Revenue,
		})
	}
	return payloads
}

func buildPeriodBucketPayloads(buckets []services.PeriodBucket) []periodBucketPayload {
	payloads := make([]periodBucketPayload, 0, len(buckets))
	for _, bucket := range buckets {
		payloads = append(payloads, periodBucketPayload{
			Key:   bucket.Key,
			Stats: buildBucketStatsPayload(bucket.Stats),
		})
	}
	return payloads
}

func writeReportError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrStatsInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderDependency):
		httpx.WriteError(ctx, w, httpx.NewError("stats_dependency_unavailable", "a downstream dependency failed", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}
