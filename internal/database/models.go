package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderItem is a line item owned by its order. Items have no identity outside
// the order; they are stored as a JSONB document on the order row. Price is
// captured at order time and never re-read from the menu.
type OrderItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
	Status   string          `json:"status"`
}

// Order is a live order. TableLabel is either a table display label or the
// "Takeaway" sentinel.
type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	TableLabel      string
	CustomerName    string
	CustomerPhone   pgtype.Text
	PaymentMethod   string
	Items           []OrderItem
	Subtotal        pgtype.Numeric
	Cgst            pgtype.Numeric
	Sgst            pgtype.Numeric
	TotalPrice      pgtype.Numeric
	Status          string
	HelpRequested   bool
	HelpRequestedAt pgtype.Timestamptz
	CashReceived    pgtype.Numeric
	ChangeDue       pgtype.Numeric
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ArchivedOrder is an order relocated to the history table by the sweeper.
type ArchivedOrder struct {
	Order
	ArchivedAt    time.Time
	ArchiveReason string
}

type DailyCounter struct {
	Day   pgtype.Date
	Count int32
}

type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Category    string
	Description pgtype.Text
	Price       pgtype.Numeric
	Image       pgtype.Text
	Available   bool
	ShowImage   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Table struct {
	ID          uuid.UUID
	TableNumber string
	CreatedAt   time.Time
}

// Setting is a keyed configuration row (store name, tax rates, print flags).
type Setting struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}
