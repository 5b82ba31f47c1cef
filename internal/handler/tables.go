package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/qrbites/api/internal/database"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	CreateTable(ctx context.Context, tableNumber string) (database.Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListTables(ctx context.Context) ([]database.Table, error)
	DeleteTable(ctx context.Context, id uuid.UUID) error
	CountLiveOrdersByTable(ctx context.Context, tableLabel string) (int64, error)
}

// TableHandler handles table endpoints.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterPublicRoutes registers the customer-facing table listing (the QR
// landing page resolves table labels from it).
func (h *TableHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/tables", h.List)
}

// RegisterStaffRoutes registers the staff table management endpoints.
func (h *TableHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/tables", h.Create)
	r.Delete("/tables/{id}", h.Delete)
}

// --- Request / Response types ---

type createTableRequest struct {
	TableNumber string `json:"table_number"`
}

type tableResponse struct {
	ID          uuid.UUID `json:"id"`
	TableNumber string    `json:"table_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- Handlers ---

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = tableResponse{ID: t.ID, TableNumber: t.TableNumber, CreatedAt: t.CreatedAt}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": resp})
}

// Create handles POST /tables.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TableNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_number is required"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), req.TableNumber)
	if err != nil {
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, tableResponse{
		ID:          table.ID,
		TableNumber: table.TableNumber,
		CreatedAt:   table.CreatedAt,
	})
}

// Delete handles DELETE /tables/{id}. The delete statement refuses to remove a
// table any live order still references; that surfaces here as a 409 with the
// cause, after distinguishing it from a plain missing table.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	err = h.store.DeleteTable(r.Context(), id)
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: delete table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Blocked delete: either the table doesn't exist, or live orders hold it.
	table, fetchErr := h.store.GetTable(r.Context(), id)
	if fetchErr != nil {
		if errors.Is(fetchErr, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table for delete: %v", fetchErr)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	count, countErr := h.store.CountLiveOrdersByTable(r.Context(), table.TableNumber)
	if countErr != nil {
		log.Printf("ERROR: count live orders for table: %v", countErr)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusConflict, map[string]interface{}{
		"error":       "table has live orders and cannot be deleted",
		"live_orders": count,
	})
}
