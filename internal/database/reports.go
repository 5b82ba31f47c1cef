package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Report queries read the union of live and archived orders so figures are
// correct regardless of whether the sweeper has run for the range yet.

type ReportRangeParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type GetDailySalesRow struct {
	SaleDate     pgtype.Date
	OrderCount   int64
	TotalRevenue pgtype.Numeric
	TotalCgst    pgtype.Numeric
	TotalSgst    pgtype.Numeric
}

const getDailySales = `
SELECT created_at::date AS sale_date,
       COUNT(*) AS order_count,
       COALESCE(SUM(total_price), 0) AS total_revenue,
       COALESCE(SUM(cgst), 0) AS total_cgst,
       COALESCE(SUM(sgst), 0) AS total_sgst
FROM (
	SELECT created_at, total_price, cgst, sgst FROM orders
	WHERE created_at >= $1 AND created_at < $2
	UNION ALL
	SELECT created_at, total_price, cgst, sgst FROM order_history
	WHERE created_at >= $1 AND created_at < $2
) all_orders
GROUP BY sale_date
ORDER BY sale_date`

func (q *Queries) GetDailySales(ctx context.Context, arg ReportRangeParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GetDailySalesRow
	for rows.Next() {
		var r GetDailySalesRow
		if err := rows.Scan(&r.SaleDate, &r.OrderCount, &r.TotalRevenue, &r.TotalCgst, &r.TotalSgst); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type GetPaymentSummaryRow struct {
	PaymentMethod string
	OrderCount    int64
	TotalAmount   pgtype.Numeric
}

const getPaymentSummary = `
SELECT payment_method,
       COUNT(*) AS order_count,
       COALESCE(SUM(total_price), 0) AS total_amount
FROM (
	SELECT payment_method, total_price FROM orders
	WHERE created_at >= $1 AND created_at < $2
	UNION ALL
	SELECT payment_method, total_price FROM order_history
	WHERE created_at >= $1 AND created_at < $2
) all_orders
GROUP BY payment_method
ORDER BY total_amount DESC`

func (q *Queries) GetPaymentSummary(ctx context.Context, arg ReportRangeParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GetPaymentSummaryRow
	for rows.Next() {
		var r GetPaymentSummaryRow
		if err := rows.Scan(&r.PaymentMethod, &r.OrderCount, &r.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type GetItemSalesRow struct {
	ItemName     string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

// Line items live inside the order JSONB document, so the per-item rollup
// expands them with jsonb_to_recordset.
const getItemSales = `
SELECT item.name AS item_name,
       COALESCE(SUM(item.quantity), 0)::bigint AS quantity_sold,
       COALESCE(SUM(item.price * item.quantity), 0) AS total_revenue
FROM (
	SELECT items FROM orders WHERE created_at >= $1 AND created_at < $2
	UNION ALL
	SELECT items FROM order_history WHERE created_at >= $1 AND created_at < $2
) all_orders,
jsonb_to_recordset(all_orders.items) AS item(name text, price numeric, quantity int)
GROUP BY item.name
ORDER BY total_revenue DESC`

func (q *Queries) GetItemSales(ctx context.Context, arg ReportRangeParams) ([]GetItemSalesRow, error) {
	rows, err := q.db.Query(ctx, getItemSales, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GetItemSalesRow
	for rows.Next() {
		var r GetItemSalesRow
		if err := rows.Scan(&r.ItemName, &r.QuantitySold, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
