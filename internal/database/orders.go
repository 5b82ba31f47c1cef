package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, table_label, customer_name, customer_phone,
	payment_method, items, subtotal, cgst, sgst, total_price, status,
	help_requested, help_requested_at, cash_received, change_due, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.TableLabel, &o.CustomerName, &o.CustomerPhone,
		&o.PaymentMethod, &o.Items, &o.Subtotal, &o.Cgst, &o.Sgst, &o.TotalPrice, &o.Status,
		&o.HelpRequested, &o.HelpRequestedAt, &o.CashReceived, &o.ChangeDue, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type CreateOrderParams struct {
	OrderNumber   string
	TableLabel    string
	CustomerName  string
	CustomerPhone pgtype.Text
	PaymentMethod string
	Items         []OrderItem
	Subtotal      pgtype.Numeric
	Cgst          pgtype.Numeric
	Sgst          pgtype.Numeric
	TotalPrice    pgtype.Numeric
	Status        string
	CashReceived  pgtype.Numeric
	ChangeDue     pgtype.Numeric
}

const createOrder = `
INSERT INTO orders (
	order_number, table_label, customer_name, customer_phone, payment_method,
	items, subtotal, cgst, sgst, total_price, status, cash_received, change_due
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber, arg.TableLabel, arg.CustomerName, arg.CustomerPhone, arg.PaymentMethod,
		arg.Items, arg.Subtotal, arg.Cgst, arg.Sgst, arg.TotalPrice, arg.Status,
		arg.CashReceived, arg.ChangeDue,
	)
	return scanOrder(row)
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	FromStatus string
}

// UpdateOrderStatus is a compare-and-set: it only applies when the order is
// still in FromStatus, so a concurrent transition surfaces as pgx.ErrNoRows.
const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.FromStatus))
}

type UpdateOrderItemsParams struct {
	ID     uuid.UUID
	Items  []OrderItem
	Status string
}

// UpdateOrderItems rewrites the full item list together with the status
// derived from it. The overall status is always recomputed from the complete
// list, never incremented.
const updateOrderItems = `
UPDATE orders SET items = $2, status = $3, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderItems(ctx context.Context, arg UpdateOrderItemsParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderItems, arg.ID, arg.Items, arg.Status))
}

type ExtendOrderParams struct {
	ID         uuid.UUID
	Items      []OrderItem
	Subtotal   pgtype.Numeric
	TotalPrice pgtype.Numeric
	Status     string
}

// ExtendOrder applies an "order more" append: new item list, new totals, and
// the status reset that reopens the kitchen workflow.
const extendOrder = `
UPDATE orders SET items = $2, subtotal = $3, total_price = $4, status = $5, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) ExtendOrder(ctx context.Context, arg ExtendOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, extendOrder,
		arg.ID, arg.Items, arg.Subtotal, arg.TotalPrice, arg.Status))
}

type ConfirmOrderParams struct {
	ID           uuid.UUID
	CashReceived pgtype.Numeric
	ChangeDue    pgtype.Numeric
}

// ConfirmOrder moves PENDING -> RECEIVED, recording the cash tender when
// present. The status predicate makes the precondition atomic.
const confirmOrder = `
UPDATE orders SET status = 'RECEIVED', cash_received = $2, change_due = $3, updated_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + orderColumns

func (q *Queries) ConfirmOrder(ctx context.Context, arg ConfirmOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, confirmOrder, arg.ID, arg.CashReceived, arg.ChangeDue))
}

// RequestHelp sets the one-way help flag. Repeated requests are no-ops at the
// data layer; the first timestamp is kept.
const requestHelp = `
UPDATE orders
SET help_requested = TRUE,
    help_requested_at = COALESCE(help_requested_at, now()),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) RequestHelp(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, requestHelp, id))
}

// ListOrderIDsBefore selects and locks every live order created strictly
// before the cutoff, so a concurrent sweep in another process blocks rather
// than double-moving.
const listOrderIDsBefore = `
SELECT id FROM orders WHERE created_at < $1 ORDER BY created_at FOR UPDATE`

func (q *Queries) ListOrderIDsBefore(ctx context.Context, cutoff pgtype.Timestamptz) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listOrderIDsBefore, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const deleteOrdersByIDs = `DELETE FROM orders WHERE id = ANY($1)`

func (q *Queries) DeleteOrdersByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrdersByIDs, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countLiveOrdersByTable = `SELECT COUNT(*) FROM orders WHERE table_label = $1`

func (q *Queries) CountLiveOrdersByTable(ctx context.Context, tableLabel string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countLiveOrdersByTable, tableLabel).Scan(&n)
	return n, err
}
