package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// NextDailyCount issues the next per-day sequence value as a single atomic
// upsert. The first order of a day creates the row at 1; afterwards the count
// advances by one, wrapping to 1 once it would exceed 1000 so order numbers
// stay four digits.
//
// Run inside the order-creation transaction: if the order insert fails the
// increment rolls back with it and no number is burned.
const nextDailyCount = `
INSERT INTO daily_counters (day, count) VALUES ($1, 1)
ON CONFLICT (day) DO UPDATE
SET count = CASE WHEN daily_counters.count >= 1000 THEN 1 ELSE daily_counters.count + 1 END
RETURNING count`

func (q *Queries) NextDailyCount(ctx context.Context, day pgtype.Date) (int32, error) {
	var count int32
	err := q.db.QueryRow(ctx, nextDailyCount, day).Scan(&count)
	return count, err
}

const getDailyCount = `SELECT count FROM daily_counters WHERE day = $1`

func (q *Queries) GetDailyCount(ctx context.Context, day pgtype.Date) (int32, error) {
	var count int32
	err := q.db.QueryRow(ctx, getDailyCount, day).Scan(&count)
	return count, err
}
