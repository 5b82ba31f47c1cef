package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/service"
	"github.com/qrbites/api/internal/ws"
)

// SweepRunner defines the sweeper method used by the handler.
// Satisfied by *service.Sweeper.
type SweepRunner interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// ArchiveStore defines the database methods needed by archive read endpoints.
// Satisfied by *database.Queries; narrow interface for testability.
type ArchiveStore interface {
	ListArchivedOrders(ctx context.Context, arg database.ListArchivedOrdersParams) ([]database.ArchivedOrder, error)
}

// ArchiveHandler exposes the order history and an on-demand sweep trigger
// alongside the scheduled one.
type ArchiveHandler struct {
	sweeper SweepRunner
	store   ArchiveStore
	hub     Broadcaster
	now     func() time.Time
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(sweeper SweepRunner, store ArchiveStore, hub Broadcaster) *ArchiveHandler {
	return &ArchiveHandler{sweeper: sweeper, store: store, hub: hub, now: time.Now}
}

// RegisterStaffRoutes registers archive endpoints.
func (h *ArchiveHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/archive/orders", h.List)
	r.Post("/archive/sweep", h.Sweep)
}

// --- Response types ---

type archivedOrderResponse struct {
	orderResponse
	ArchivedAt    time.Time `json:"archived_at"`
	ArchiveReason string    `json:"archive_reason"`
}

type archiveListResponse struct {
	Orders []archivedOrderResponse `json:"orders"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

type sweepResponse struct {
	Moved int `json:"moved"`
}

// --- Handlers ---

// List handles GET /archive/orders?start_date=&end_date=.
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}
	limit, offset := parsePagination(r)

	orders, err := h.store.ListArchivedOrders(r.Context(), database.ListArchivedOrdersParams{
		StartDate: start,
		EndDate:   end,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list archived orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]archivedOrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = archivedOrderResponse{
			orderResponse: toOrderResponse(o.Order),
			ArchivedAt:    o.ArchivedAt,
			ArchiveReason: o.ArchiveReason,
		}
	}

	writeJSON(w, http.StatusOK, archiveListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Sweep handles POST /archive/sweep: runs the archival sweep now and reports
// how many orders moved. A sweep already running elsewhere is a 409.
func (h *ArchiveHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	moved, err := h.sweeper.Sweep(r.Context(), h.now())
	if err != nil {
		if errors.Is(err, service.ErrSweepInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: manual sweep: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if moved > 0 {
		h.hub.Broadcast(ws.TopicOrders, ws.Event{
			Type:    "orders.swept",
			Payload: []byte(`{"moved":` + strconv.Itoa(moved) + `}`),
		})
	}

	writeJSON(w, http.StatusOK, sweepResponse{Moved: moved})
}
