package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/enum"
)

// ErrSweepInProgress is returned when a sweep is requested while another is
// already running in this process.
var ErrSweepInProgress = errors.New("sweep already in progress")

// SweepStore defines the DB methods needed by the archival sweeper.
// Satisfied by *database.Queries bound to a transaction.
type SweepStore interface {
	ListOrderIDsBefore(ctx context.Context, cutoff pgtype.Timestamptz) ([]uuid.UUID, error)
	CopyOrdersToHistory(ctx context.Context, arg database.CopyOrdersToHistoryParams) (int64, error)
	DeleteOrdersByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// NewSweepStore creates a SweepStore from a DBTX (pool or tx).
type NewSweepStore func(db database.DBTX) SweepStore

// Sweeper relocates stale live orders into the history table. The move is a
// single transaction; repeated or concurrent sweeps move nothing twice.
type Sweeper struct {
	pool     TxBeginner
	newStore NewSweepStore
	interval time.Duration
	running  atomic.Bool
}

func NewSweeper(pool TxBeginner, newStore NewSweepStore, interval time.Duration) *Sweeper {
	return &Sweeper{pool: pool, newStore: newStore, interval: interval}
}

// Cutoff returns the archival boundary for now: 23:00 of the current day once
// the clock has passed 23:00, otherwise 23:00 of the previous day.
func Cutoff(now time.Time) time.Time {
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 23, 0, 0, 0, now.Location())
	if now.Before(cutoff) {
		cutoff = cutoff.AddDate(0, 0, -1)
	}
	return cutoff
}

// Sweep moves every live order created strictly before the cutoff into
// order_history (status forced COMPLETED) and deletes it from the live set,
// all-or-nothing. Returns the number of orders moved. Only one sweep runs at
// a time per process; concurrent callers get ErrSweepInProgress.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrSweepInProgress
	}
	defer s.running.Store(false)

	cutoff := Cutoff(now)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	ids, err := store.ListOrderIDsBefore(ctx, pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("select stale orders: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	copied, err := store.CopyOrdersToHistory(ctx, database.CopyOrdersToHistoryParams{
		IDs:           ids,
		ArchiveReason: enum.ArchiveReasonDailyCutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("copy to history: %w", err)
	}
	if copied != int64(len(ids)) {
		return 0, fmt.Errorf("copy to history: moved %d of %d selected orders", copied, len(ids))
	}

	deleted, err := store.DeleteOrdersByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete swept orders: %w", err)
	}
	if deleted != int64(len(ids)) {
		return 0, fmt.Errorf("delete swept orders: removed %d of %d selected orders", deleted, len(ids))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(ids), nil
}

// Run re-evaluates the cutoff on a fixed interval until ctx is cancelled.
// This should be called as a goroutine: go sweeper.Run(ctx)
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			moved, err := s.Sweep(ctx, time.Now())
			if err != nil && !errors.Is(err, ErrSweepInProgress) {
				log.Printf("ERROR: archival sweep: %v", err)
				continue
			}
			if moved > 0 {
				log.Printf("archival sweep moved %d orders to history", moved)
			}
		}
	}
}
