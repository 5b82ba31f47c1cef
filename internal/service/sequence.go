package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// CounterStore issues per-day sequence values. The single method must be an
// atomic read-modify-write; callers never read and write the counter
// separately. Satisfied by *database.Queries.
type CounterStore interface {
	NextDailyCount(ctx context.Context, day pgtype.Date) (int32, error)
}

// SequenceGenerator turns the per-day counter into 4-digit order numbers.
// Bind it to a transaction store so the increment commits or rolls back with
// the order it numbers.
type SequenceGenerator struct {
	store CounterStore
}

func NewSequenceGenerator(store CounterStore) *SequenceGenerator {
	return &SequenceGenerator{store: store}
}

// NextOrderNumber returns the next number for the calendar day of t,
// zero-padded to four digits. Concurrent callers for one day each receive a
// distinct successor; the value wraps to 1 past 1000 so numbers stay
// human-readable.
func (g *SequenceGenerator) NextOrderNumber(ctx context.Context, t time.Time) (string, error) {
	count, err := g.store.NextDailyCount(ctx, DayOf(t))
	if err != nil {
		return "", fmt.Errorf("next daily count: %w", err)
	}
	return FormatOrderNumber(count), nil
}

// FormatOrderNumber zero-pads a counter value to the 4-digit display form.
func FormatOrderNumber(n int32) string {
	return fmt.Sprintf("%04d", n)
}

// DayOf truncates t to its calendar day in local time.
func DayOf(t time.Time) pgtype.Date {
	y, m, d := t.Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}
