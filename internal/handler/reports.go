package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/qrbites/api/internal/database"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context, arg database.ReportRangeParams) ([]database.GetDailySalesRow, error)
	GetPaymentSummary(ctx context.Context, arg database.ReportRangeParams) ([]database.GetPaymentSummaryRow, error)
	GetItemSales(ctx context.Context, arg database.ReportRangeParams) ([]database.GetItemSalesRow, error)
}

// ReportsHandler handles the sales analytics endpoints. Figures are computed
// over the union of live and archived orders, so running reports before the
// nightly sweep gives the same answer as after.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterStaffRoutes registers report endpoints.
func (h *ReportsHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/reports/daily-sales", h.DailySales)
	r.Get("/reports/payment-summary", h.PaymentSummary)
	r.Get("/reports/item-sales", h.ItemSales)
}

// --- Response types ---

type dailySalesRow struct {
	Date         string `json:"date"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
	TotalCgst    string `json:"total_cgst"`
	TotalSgst    string `json:"total_sgst"`
}

type paymentSummaryRow struct {
	PaymentMethod string `json:"payment_method"`
	OrderCount    int64  `json:"order_count"`
	TotalAmount   string `json:"total_amount"`
}

type itemSalesRow struct {
	ItemName     string `json:"item_name"`
	QuantitySold int64  `json:"quantity_sold"`
	TotalRevenue string `json:"total_revenue"`
}

// --- Handlers ---

// DailySales handles GET /reports/daily-sales?start_date=&end_date=.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.ReportRangeParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: daily sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesRow, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesRow{
			Date:         row.SaleDate.Time.Format("2006-01-02"),
			OrderCount:   row.OrderCount,
			TotalRevenue: numericToString(row.TotalRevenue),
			TotalCgst:    numericToString(row.TotalCgst),
			TotalSgst:    numericToString(row.TotalSgst),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"daily_sales": resp})
}

// PaymentSummary handles GET /reports/payment-summary?start_date=&end_date=.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), database.ReportRangeParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: payment summary report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentSummaryRow, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryRow{
			PaymentMethod: row.PaymentMethod,
			OrderCount:    row.OrderCount,
			TotalAmount:   numericToString(row.TotalAmount),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payment_summary": resp})
}

// ItemSales handles GET /reports/item-sales?start_date=&end_date=.
func (h *ReportsHandler) ItemSales(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	rows, err := h.store.GetItemSales(r.Context(), database.ReportRangeParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: item sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]itemSalesRow, len(rows))
	for i, row := range rows {
		resp[i] = itemSalesRow{
			ItemName:     row.ItemName,
			QuantitySold: row.QuantitySold,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"item_sales": resp})
}
