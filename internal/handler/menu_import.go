package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/qrbites/api/internal/ai"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/service"
)

// MenuImportStore defines the database methods needed by the menu importer.
// Satisfied by *database.Queries bound to a transaction.
type MenuImportStore interface {
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
}

// NewMenuImportStore creates a MenuImportStore from a DBTX (pool or tx).
type NewMenuImportStore func(db database.DBTX) MenuImportStore

// MenuImportHandler turns pasted menu text into menu rows. The parse step is
// pluggable: Gemini when an API key is configured, the deterministic line
// parser otherwise. All parsed items are inserted in one transaction, so a
// failed import leaves the menu untouched.
type MenuImportHandler struct {
	parser   ai.MenuParser
	pool     service.TxBeginner
	newStore NewMenuImportStore
}

// NewMenuImportHandler creates a new MenuImportHandler.
func NewMenuImportHandler(parser ai.MenuParser, pool service.TxBeginner, newStore NewMenuImportStore) *MenuImportHandler {
	return &MenuImportHandler{parser: parser, pool: pool, newStore: newStore}
}

// RegisterStaffRoutes registers the import endpoint.
func (h *MenuImportHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/menu/import", h.Import)
}

// --- Request / Response types ---

type menuImportRequest struct {
	Text string `json:"text"`
}

type menuImportResponse struct {
	Imported int                `json:"imported"`
	Items    []menuItemResponse `json:"items"`
}

// --- Handlers ---

// Import handles POST /menu/import. A parse failure is reported per call with
// 422 and imports nothing.
func (h *MenuImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req menuImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	result, err := h.parser.ParseMenuText(r.Context(), req.Text)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: menu import: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)

	created := make([]menuItemResponse, 0, len(result.Items))
	for _, item := range result.Items {
		category := item.Category
		if category == "" {
			category = "Uncategorized"
		}

		params := database.CreateMenuItemParams{
			Name:      item.Name,
			Category:  category,
			Available: true,
			ShowImage: false,
		}
		var n pgtype.Numeric
		_ = n.Scan(item.Price.StringFixed(2))
		params.Price = n
		if item.Description != "" {
			params.Description = pgtype.Text{String: item.Description, Valid: true}
		}

		row, err := store.CreateMenuItem(r.Context(), params)
		if err != nil {
			log.Printf("ERROR: menu import: insert %q: %v", item.Name, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		created = append(created, toMenuItemResponse(row))
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: menu import: commit tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, menuImportResponse{
		Imported: len(created),
		Items:    created,
	})
}
