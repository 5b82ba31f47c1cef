package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CopyOrdersToHistoryParams struct {
	IDs           []uuid.UUID
	ArchiveReason string
}

// CopyOrdersToHistory snapshots the selected live orders into order_history
// with status forced to COMPLETED. Runs in the same transaction as the
// matching delete so the move is all-or-nothing.
const copyOrdersToHistory = `
INSERT INTO order_history (
	id, order_number, table_label, customer_name, customer_phone, payment_method,
	items, subtotal, cgst, sgst, total_price, status,
	help_requested, help_requested_at, cash_received, change_due, created_at, updated_at,
	archived_at, archive_reason
)
SELECT id, order_number, table_label, customer_name, customer_phone, payment_method,
	items, subtotal, cgst, sgst, total_price, 'COMPLETED',
	help_requested, help_requested_at, cash_received, change_due, created_at, updated_at,
	now(), $2
FROM orders WHERE id = ANY($1)`

func (q *Queries) CopyOrdersToHistory(ctx context.Context, arg CopyOrdersToHistoryParams) (int64, error) {
	tag, err := q.db.Exec(ctx, copyOrdersToHistory, arg.IDs, arg.ArchiveReason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const archivedOrderColumns = orderColumns + `, archived_at, archive_reason`

type ListArchivedOrdersParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

const listArchivedOrders = `
SELECT ` + archivedOrderColumns + `
FROM order_history
WHERE created_at >= $1 AND created_at < $2
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListArchivedOrders(ctx context.Context, arg ListArchivedOrdersParams) ([]ArchivedOrder, error) {
	rows, err := q.db.Query(ctx, listArchivedOrders, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []ArchivedOrder
	for rows.Next() {
		var o ArchivedOrder
		err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.TableLabel, &o.CustomerName, &o.CustomerPhone,
			&o.PaymentMethod, &o.Items, &o.Subtotal, &o.Cgst, &o.Sgst, &o.TotalPrice, &o.Status,
			&o.HelpRequested, &o.HelpRequestedAt, &o.CashReceived, &o.ChangeDue, &o.CreatedAt, &o.UpdatedAt,
			&o.ArchivedAt, &o.ArchiveReason,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
