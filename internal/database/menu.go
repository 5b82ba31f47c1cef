package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, category, description, price, image, available, show_image, created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Description, &m.Price,
		&m.Image, &m.Available, &m.ShowImage, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

type CreateMenuItemParams struct {
	Name        string
	Category    string
	Description pgtype.Text
	Price       pgtype.Numeric
	Image       pgtype.Text
	Available   bool
	ShowImage   bool
}

const createMenuItem = `
INSERT INTO menu_items (name, category, description, price, image, available, show_image)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + menuItemColumns

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.Name, arg.Category, arg.Description, arg.Price, arg.Image, arg.Available, arg.ShowImage)
	return scanMenuItem(row)
}

const getMenuItem = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const getMenuItemsByIDs = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = ANY($1)`

func (q *Queries) GetMenuItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, getMenuItemsByIDs, ids)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}

type ListMenuItemsParams struct {
	AvailableOnly bool
}

const listMenuItems = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE (NOT $1::bool OR available)
ORDER BY category, name`

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.AvailableOnly)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}

func collectMenuItems(rows pgx.Rows) ([]MenuItem, error) {
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type UpdateMenuItemParams struct {
	ID          uuid.UUID
	Name        string
	Category    string
	Description pgtype.Text
	Price       pgtype.Numeric
	Image       pgtype.Text
	Available   bool
	ShowImage   bool
}

const updateMenuItem = `
UPDATE menu_items
SET name = $2, category = $3, description = $4, price = $5, image = $6,
    available = $7, show_image = $8, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem, arg.ID,
		arg.Name, arg.Category, arg.Description, arg.Price, arg.Image, arg.Available, arg.ShowImage)
	return scanMenuItem(row)
}

const setMenuItemAvailability = `
UPDATE menu_items SET available = $2, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

func (q *Queries) SetMenuItemAvailability(ctx context.Context, id uuid.UUID, available bool) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, setMenuItemAvailability, id, available))
}

const deleteMenuItem = `DELETE FROM menu_items WHERE id = $1`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteMenuItem, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
