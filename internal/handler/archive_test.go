package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/enum"
	"github.com/qrbites/api/internal/handler"
	"github.com/qrbites/api/internal/service"
	"github.com/qrbites/api/internal/ws"
)

type mockSweeper struct {
	sweepFn func(ctx context.Context, now time.Time) (int, error)
}

func (m *mockSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	return m.sweepFn(ctx, now)
}

type mockArchiveStore struct {
	listFn func(ctx context.Context, arg database.ListArchivedOrdersParams) ([]database.ArchivedOrder, error)
}

func (m *mockArchiveStore) ListArchivedOrders(ctx context.Context, arg database.ListArchivedOrdersParams) ([]database.ArchivedOrder, error) {
	return m.listFn(ctx, arg)
}

func setupArchiveRouter(sweeper handler.SweepRunner, store handler.ArchiveStore, hub handler.Broadcaster) chi.Router {
	r := chi.NewRouter()
	handler.NewArchiveHandler(sweeper, store, hub).RegisterStaffRoutes(r)
	return r
}

func archivedOrder(id uuid.UUID) database.ArchivedOrder {
	return database.ArchivedOrder{
		Order: database.Order{
			ID:            id,
			OrderNumber:   "0042",
			TableLabel:    "T3",
			CustomerName:  "Ravi",
			PaymentMethod: enum.PaymentMethodCash,
			Subtotal:      makeNumeric("400.00"),
			Cgst:          makeNumeric("10.00"),
			Sgst:          makeNumeric("10.00"),
			TotalPrice:    makeNumeric("420.00"),
			Status:        enum.OrderStatusCompleted,
		},
		ArchivedAt:    time.Date(2026, 3, 14, 23, 5, 0, 0, time.UTC),
		ArchiveReason: enum.ArchiveReasonDailyCutoff,
	}
}

func TestListArchivedOrders(t *testing.T) {
	orderID := uuid.New()
	var gotParams database.ListArchivedOrdersParams
	store := &mockArchiveStore{
		listFn: func(ctx context.Context, arg database.ListArchivedOrdersParams) ([]database.ArchivedOrder, error) {
			gotParams = arg
			return []database.ArchivedOrder{archivedOrder(orderID)}, nil
		},
	}
	router := setupArchiveRouter(&mockSweeper{}, store, &mockHub{})

	rec := doRequest(t, router, http.MethodGet, "/archive/orders?start_date=2026-03-14&end_date=2026-03-14&limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if gotParams.Limit != 10 {
		t.Errorf("limit: got %d, want 10", gotParams.Limit)
	}

	var resp struct {
		Orders []struct {
			ID            uuid.UUID `json:"id"`
			Status        string    `json:"status"`
			ArchivedAt    time.Time `json:"archived_at"`
			ArchiveReason string    `json:"archive_reason"`
		} `json:"orders"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Orders) != 1 {
		t.Fatalf("orders: got %d, want 1", len(resp.Orders))
	}
	got := resp.Orders[0]
	if got.ID != orderID || got.Status != "COMPLETED" || got.ArchiveReason != "DAILY_CUTOFF" {
		t.Errorf("order: got %+v", got)
	}
	if got.ArchivedAt.IsZero() {
		t.Error("archived_at missing")
	}
}

func TestListArchivedOrders_BadDate(t *testing.T) {
	router := setupArchiveRouter(&mockSweeper{}, &mockArchiveStore{}, &mockHub{})

	rec := doRequest(t, router, http.MethodGet, "/archive/orders?start_date=last-tuesday", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestManualSweep(t *testing.T) {
	sweeper := &mockSweeper{
		sweepFn: func(ctx context.Context, now time.Time) (int, error) {
			return 7, nil
		},
	}
	hub := &mockHub{}
	router := setupArchiveRouter(sweeper, &mockArchiveStore{}, hub)

	rec := doRequest(t, router, http.MethodPost, "/archive/sweep", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var resp struct {
		Moved int `json:"moved"`
	}
	decodeBody(t, rec, &resp)
	if resp.Moved != 7 {
		t.Errorf("moved: got %d, want 7", resp.Moved)
	}

	events := hub.recorded()
	if len(events) != 1 {
		t.Fatalf("broadcasts: got %d, want 1", len(events))
	}
	if events[0].Topic != ws.TopicOrders || events[0].Event.Type != "orders.swept" {
		t.Errorf("broadcast: got %s/%s", events[0].Topic, events[0].Event.Type)
	}
}

func TestManualSweep_NothingMovedNoBroadcast(t *testing.T) {
	sweeper := &mockSweeper{
		sweepFn: func(ctx context.Context, now time.Time) (int, error) {
			return 0, nil
		},
	}
	hub := &mockHub{}
	router := setupArchiveRouter(sweeper, &mockArchiveStore{}, hub)

	rec := doRequest(t, router, http.MethodPost, "/archive/sweep", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if len(hub.recorded()) != 0 {
		t.Error("empty sweep must not broadcast")
	}
}

func TestManualSweep_AlreadyRunning(t *testing.T) {
	sweeper := &mockSweeper{
		sweepFn: func(ctx context.Context, now time.Time) (int, error) {
			return 0, service.ErrSweepInProgress
		},
	}
	router := setupArchiveRouter(sweeper, &mockArchiveStore{}, &mockHub{})

	rec := doRequest(t, router, http.MethodPost, "/archive/sweep", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
}
