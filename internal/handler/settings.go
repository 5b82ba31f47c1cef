package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/qrbites/api/internal/database"
)

// SettingsStore defines the database methods needed by settings handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (database.Setting, error)
	ListSettings(ctx context.Context) ([]database.Setting, error)
	UpsertSetting(ctx context.Context, key string, value []byte) (database.Setting, error)
}

// SettingsHandler handles restaurant settings (store details, tax rates,
// print flags). Values are opaque JSON documents keyed by name.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// RegisterStaffRoutes registers settings endpoints.
func (h *SettingsHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/settings", h.List)
	r.Get("/settings/{key}", h.Get)
	r.Put("/settings/{key}", h.Upsert)
}

type settingResponse struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// List handles GET /settings.
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		log.Printf("ERROR: list settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]settingResponse, len(settings))
	for i, s := range settings {
		resp[i] = settingResponse{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": resp})
}

// Get handles GET /settings/{key}.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	setting, err := h.store.GetSetting(r.Context(), key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "setting not found"})
			return
		}
		log.Printf("ERROR: get setting: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, settingResponse{
		Key:       setting.Key,
		Value:     setting.Value,
		UpdatedAt: setting.UpdatedAt,
	})
}

// Upsert handles PUT /settings/{key}. The body is the setting's JSON value.
func (h *SettingsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value must be valid JSON"})
		return
	}

	setting, err := h.store.UpsertSetting(r.Context(), key, body)
	if err != nil {
		log.Printf("ERROR: upsert setting: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, settingResponse{
		Key:       setting.Key,
		Value:     setting.Value,
		UpdatedAt: setting.UpdatedAt,
	})
}
