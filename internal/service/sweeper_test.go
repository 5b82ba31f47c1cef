package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/enum"
)

type mockSweepStore struct {
	listFn   func(ctx context.Context, cutoff pgtype.Timestamptz) ([]uuid.UUID, error)
	copyFn   func(ctx context.Context, arg database.CopyOrdersToHistoryParams) (int64, error)
	deleteFn func(ctx context.Context, ids []uuid.UUID) (int64, error)
}

func (m *mockSweepStore) ListOrderIDsBefore(ctx context.Context, cutoff pgtype.Timestamptz) ([]uuid.UUID, error) {
	return m.listFn(ctx, cutoff)
}
func (m *mockSweepStore) CopyOrdersToHistory(ctx context.Context, arg database.CopyOrdersToHistoryParams) (int64, error) {
	return m.copyFn(ctx, arg)
}
func (m *mockSweepStore) DeleteOrdersByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return m.deleteFn(ctx, ids)
}

func newTestSweeper(store SweepStore) (*Sweeper, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	return NewSweeper(pool, func(db database.DBTX) SweepStore { return store }, time.Minute), tx
}

func TestCutoff(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before cutoff uses previous day",
			now:  time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
			want: time.Date(2026, 3, 13, 23, 0, 0, 0, time.UTC),
		},
		{
			name: "after cutoff uses same day",
			now:  time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC),
			want: time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at cutoff uses same day",
			now:  time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC),
		},
		{
			name: "just before cutoff uses previous day",
			now:  time.Date(2026, 3, 14, 22, 59, 59, 0, time.UTC),
			want: time.Date(2026, 3, 13, 23, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Cutoff(tc.now); !got.Equal(tc.want) {
				t.Errorf("Cutoff(%v): got %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestSweep_MovesStaleOrders(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	wantCutoff := time.Date(2026, 3, 13, 23, 0, 0, 0, time.UTC)

	store := &mockSweepStore{
		listFn: func(ctx context.Context, cutoff pgtype.Timestamptz) ([]uuid.UUID, error) {
			if !cutoff.Time.Equal(wantCutoff) {
				t.Errorf("cutoff: got %v, want %v", cutoff.Time, wantCutoff)
			}
			return ids, nil
		},
		copyFn: func(ctx context.Context, arg database.CopyOrdersToHistoryParams) (int64, error) {
			if arg.ArchiveReason != enum.ArchiveReasonDailyCutoff {
				t.Errorf("archive reason: got %s, want DAILY_CUTOFF", arg.ArchiveReason)
			}
			return int64(len(arg.IDs)), nil
		},
		deleteFn: func(ctx context.Context, got []uuid.UUID) (int64, error) {
			return int64(len(got)), nil
		},
	}
	sweeper, tx := newTestSweeper(store)

	moved, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if moved != len(ids) {
		t.Errorf("moved: got %d, want %d", moved, len(ids))
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestSweep_NothingToMove(t *testing.T) {
	store := &mockSweepStore{
		listFn: func(ctx context.Context, cutoff pgtype.Timestamptz) ([]uuid.UUID, error) {
			return nil, nil
		},
	}
	sweeper, tx := newTestSweeper(store)

	moved, err := sweeper.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if moved != 0 {
		t.Errorf("moved: got %d, want 0", moved)
	}
	if tx.committed {
		t.Error("empty sweep should not commit")
	}
	if !tx.rolledBack {
		t.Error("empty sweep should roll back its transaction")
	}
}

func TestSweep_CopyCountMismatchAborts(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	store := &mockSweepStore{
		listFn: func(ctx context.Context, cutoff pgtype.Timestamptz) ([]uuid.UUID, error) {
			return ids, nil
		},
		copyFn: func(ctx context.Context, arg database.CopyOrdersToHistoryParams) (int64, error) {
			return 1, nil
		},
	}
	sweeper, tx := newTestSweeper(store)

	_, err := sweeper.Sweep(context.Background(), time.Now())
	if err == nil || !strings.Contains(err.Error(), "moved 1 of 2") {
		t.Fatalf("error: got %v, want copy count mismatch", err)
	}
	if tx.committed {
		t.Error("mismatched sweep must not commit")
	}
}

func TestSweep_DeleteCountMismatchAborts(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	store := &mockSweepStore{
		listFn: func(ctx context.Context, cutoff pgtype.Timestamptz) ([]uuid.UUID, error) {
			return ids, nil
		},
		copyFn: func(ctx context.Context, arg database.CopyOrdersToHistoryParams) (int64, error) {
			return 2, nil
		},
		deleteFn: func(ctx context.Context, got []uuid.UUID) (int64, error) {
			return 1, nil
		},
	}
	sweeper, tx := newTestSweeper(store)

	_, err := sweeper.Sweep(context.Background(), time.Now())
	if err == nil || !strings.Contains(err.Error(), "removed 1 of 2") {
		t.Fatalf("error: got %v, want delete count mismatch", err)
	}
	if tx.committed {
		t.Error("mismatched sweep must not commit")
	}
}

func TestSweep_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var enteredOnce sync.Once

	store := &mockSweepStore{
		listFn: func(ctx context.Context, cutoff pgtype.Timestamptz) ([]uuid.UUID, error) {
			enteredOnce.Do(func() { close(entered) })
			<-release
			return nil, nil
		},
	}
	sweeper, _ := newTestSweeper(store)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := sweeper.Sweep(context.Background(), time.Now()); err != nil {
			t.Errorf("first sweep: %v", err)
		}
	}()

	<-entered
	if _, err := sweeper.Sweep(context.Background(), time.Now()); !errors.Is(err, ErrSweepInProgress) {
		t.Errorf("second sweep: got %v, want ErrSweepInProgress", err)
	}
	close(release)
	wg.Wait()

	// The guard clears once the first sweep finishes.
	if _, err := sweeper.Sweep(context.Background(), time.Now()); err != nil {
		t.Errorf("third sweep: %v", err)
	}
}
