package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, table_number, created_at`

const createTable = `
INSERT INTO tables (table_number) VALUES ($1)
RETURNING ` + tableColumns

func (q *Queries) CreateTable(ctx context.Context, tableNumber string) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, createTable, tableNumber).Scan(&t.ID, &t.TableNumber, &t.CreatedAt)
	return t, err
}

const getTable = `SELECT ` + tableColumns + ` FROM tables WHERE id = $1`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, getTable, id).Scan(&t.ID, &t.TableNumber, &t.CreatedAt)
	return t, err
}

const listTables = `SELECT ` + tableColumns + ` FROM tables ORDER BY table_number`

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.TableNumber, &t.CreatedAt); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// DeleteTable removes a table only when no live order references its label.
// The guard and the delete are one statement, so the referential check cannot
// race with a concurrent order creation observed by this transaction.
const deleteTable = `
DELETE FROM tables t
WHERE t.id = $1
  AND NOT EXISTS (SELECT 1 FROM orders o WHERE o.table_label = t.table_number)`

func (q *Queries) DeleteTable(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteTable, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
