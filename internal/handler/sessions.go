package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/qrbites/api/internal/service"
)

// Sessioner defines the session controller methods used by the handlers.
// Satisfied by *service.Sessions; narrow interface for testability.
type Sessioner interface {
	Start(ctx context.Context, kind, id string, now time.Time) (time.Time, error)
	Remaining(ctx context.Context, kind, id string, now time.Time) (time.Duration, bool, error)
	Expire(ctx context.Context, kind, id string, now time.Time) (bool, error)
	Clear(ctx context.Context, kind, id string) error
}

// SessionHandler exposes the customer session timers: the ordering budget
// (keyed by device ID) and the served-redirect window (keyed by order ID).
// Deadlines are absolute and server-held, so page reloads never reset them.
type SessionHandler struct {
	sessions Sessioner
	now      func() time.Time
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions Sessioner) *SessionHandler {
	return &SessionHandler{sessions: sessions, now: time.Now}
}

// RegisterPublicRoutes registers session endpoints. These are customer-facing;
// the session ID is the device/order UUID the client already holds.
func (h *SessionHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/sessions/{kind}/{id}/start", h.Start)
	r.Get("/sessions/{kind}/{id}", h.Remaining)
	r.Post("/sessions/{kind}/{id}/expire", h.Expire)
	r.Delete("/sessions/{kind}/{id}", h.Clear)
}

// --- Response types ---

type sessionStartResponse struct {
	Deadline    time.Time `json:"deadline"`
	RemainingMs int64     `json:"remaining_ms"`
}

type sessionRemainingResponse struct {
	Active      bool  `json:"active"`
	RemainingMs int64 `json:"remaining_ms"`
}

type sessionExpireResponse struct {
	Expired bool `json:"expired"`
}

// --- Handlers ---

// Start handles POST /sessions/{kind}/{id}/start. Starting an already-running
// session returns the original deadline; the clock never resets.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	id := chi.URLParam(r, "id")
	now := h.now()

	deadline, err := h.sessions.Start(r.Context(), kind, id, now)
	if err != nil {
		h.writeSessionError(w, "start session", err)
		return
	}

	remaining := deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	writeJSON(w, http.StatusOK, sessionStartResponse{
		Deadline:    deadline,
		RemainingMs: remaining.Milliseconds(),
	})
}

// Remaining handles GET /sessions/{kind}/{id}.
func (h *SessionHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	id := chi.URLParam(r, "id")

	remaining, active, err := h.sessions.Remaining(r.Context(), kind, id, h.now())
	if err != nil {
		h.writeSessionError(w, "read session", err)
		return
	}

	writeJSON(w, http.StatusOK, sessionRemainingResponse{
		Active:      active,
		RemainingMs: remaining.Milliseconds(),
	})
}

// Expire handles POST /sessions/{kind}/{id}/expire. Exactly one caller past
// the deadline sees expired=true; the timer cannot fire twice.
func (h *SessionHandler) Expire(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	id := chi.URLParam(r, "id")

	expired, err := h.sessions.Expire(r.Context(), kind, id, h.now())
	if err != nil {
		h.writeSessionError(w, "expire session", err)
		return
	}

	writeJSON(w, http.StatusOK, sessionExpireResponse{Expired: expired})
}

// Clear handles DELETE /sessions/{kind}/{id} (a new order abandons the old
// session outright).
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	id := chi.URLParam(r, "id")

	if err := h.sessions.Clear(r.Context(), kind, id); err != nil {
		h.writeSessionError(w, "clear session", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) writeSessionError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, service.ErrUnknownSessionKind) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	log.Printf("ERROR: %s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
