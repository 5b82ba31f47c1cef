package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/service"
	"github.com/qrbites/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	Confirm(ctx context.Context, orderID uuid.UUID, cashReceived string) (database.Order, error)
	PackItem(ctx context.Context, orderID uuid.UUID, itemIndex int) (database.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next string) (database.Order, error)
	AddItems(ctx context.Context, orderID uuid.UUID, items []service.CreateOrderItemRequest) (database.Order, error)
	RequestHelp(ctx context.Context, orderID uuid.UUID) (database.Order, error)
}

// OrderReadStore defines the database methods needed by the order read endpoints.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderReadStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
}

// Broadcaster pushes realtime events to websocket rooms. Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(topic string, event ws.Event)
}

// OrderHandler handles order endpoints for both customers and staff.
type OrderHandler struct {
	svc   OrderServicer
	store OrderReadStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderReadStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterPublicRoutes registers the customer-facing endpoints. The order ID is
// an unguessable UUID handed to the customer at creation, which is their
// credential for the per-order routes.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/{id}", h.Get)
	r.Post("/orders/{id}/items", h.AddItems)
	r.Post("/orders/{id}/help", h.Help)
}

// RegisterStaffRoutes registers the staff console endpoints.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Post("/orders/manual", h.CreateManual)
	r.Post("/orders/{id}/confirm", h.Confirm)
	r.Post("/orders/{id}/items/{index}/pack", h.PackItem)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableLabel    string                   `json:"table_label"`
	CustomerName  string                   `json:"customer_name"`
	CustomerPhone string                   `json:"customer_phone"`
	PaymentMethod string                   `json:"payment_method"`
	CashReceived  string                   `json:"cash_received"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type addItemsRequest struct {
	Items []createOrderItemRequest `json:"items"`
}

type confirmRequest struct {
	CashReceived string `json:"cash_received"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int32  `json:"quantity"`
	Status   string `json:"status"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	TableLabel      string              `json:"table_label"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   *string             `json:"customer_phone"`
	PaymentMethod   string              `json:"payment_method"`
	Items           []orderItemResponse `json:"items"`
	Subtotal        string              `json:"subtotal"`
	Cgst            string              `json:"cgst"`
	Sgst            string              `json:"sgst"`
	TotalPrice      string              `json:"total_price"`
	Status          string              `json:"status"`
	HelpRequested   bool                `json:"help_requested"`
	HelpRequestedAt *time.Time          `json:"help_requested_at"`
	CashReceived    *string             `json:"cash_received"`
	ChangeDue       *string             `json:"change_due"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /orders (customer). The order starts PENDING and waits
// for staff confirmation.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, false)
}

// CreateManual handles POST /orders/manual (staff POS entry). The order starts
// RECEIVED; CASH entry must cover the total.
func (h *OrderHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, true)
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request, staffPlaced bool) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		}
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		TableLabel:    req.TableLabel,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PaymentMethod: req.PaymentMethod,
		StaffPlaced:   staffPlaced,
		CashReceived:  req.CashReceived,
		Items:         items,
	})
	if err != nil {
		h.writeOrderError(w, "create order", err)
		return
	}

	h.broadcastOrder("order.created", order)
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// List handles GET /orders (staff), newest first, optional ?status= filter.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// AddItems handles POST /orders/{id}/items ("order more"). The appended items
// reopen the order: status drops back to PENDING.
func (h *OrderHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req addItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		}
	}

	order, err := h.svc.AddItems(r.Context(), orderID, items)
	if err != nil {
		h.writeOrderError(w, "add order items", err)
		return
	}

	h.broadcastOrder("order.updated", order)
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Help handles POST /orders/{id}/help. Idempotent; repeat presses return 200.
func (h *OrderHandler) Help(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.RequestHelp(r.Context(), orderID)
	if err != nil {
		h.writeOrderError(w, "request help", err)
		return
	}

	h.broadcastOrder("order.help_requested", order)
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Confirm handles POST /orders/{id}/confirm (staff): PENDING -> RECEIVED.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.Confirm(r.Context(), orderID, req.CashReceived)
	if err != nil {
		h.writeOrderError(w, "confirm order", err)
		return
	}

	h.broadcastOrder("order.updated", order)
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// PackItem handles POST /orders/{id}/items/{index}/pack (staff): marks one
// line item SERVED and recomputes the overall status.
func (h *OrderHandler) PackItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item index"})
		return
	}

	order, err := h.svc.PackItem(r.Context(), orderID, index)
	if err != nil {
		h.writeOrderError(w, "pack order item", err)
		return
	}

	h.broadcastOrder("order.updated", order)
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateStatus handles PATCH /orders/{id}/status (staff): READY and HANDOVER.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.writeOrderError(w, "update order status", err)
		return
	}

	h.broadcastOrder("order.updated", order)
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// --- Helpers ---

// writeOrderError maps service errors to HTTP status codes: validation
// failures to 400, state conflicts to 409, missing orders to 404, everything
// else to 500.
func (h *OrderHandler) writeOrderError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case isOrderValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, service.ErrCustomerNameRequired) ||
		errors.Is(err, service.ErrTableRequired) ||
		errors.Is(err, service.ErrInvalidPayment) ||
		errors.Is(err, service.ErrCashRequired) ||
		errors.Is(err, service.ErrInvalidCashAmount) ||
		errors.Is(err, service.ErrInsufficientCash) ||
		errors.Is(err, service.ErrItemIndex)
}

// broadcastOrder pushes the event to the staff room and the order's own room.
func (h *OrderHandler) broadcastOrder(eventType string, order database.Order) {
	payload, err := json.Marshal(toOrderResponse(order))
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	event := ws.Event{Type: eventType, Payload: payload}
	h.hub.Broadcast(ws.TopicOrders, event)
	h.hub.Broadcast(ws.TopicOrder(order.ID), event)
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		TableLabel:    o.TableLabel,
		CustomerName:  o.CustomerName,
		PaymentMethod: o.PaymentMethod,
		Subtotal:      numericToString(o.Subtotal),
		Cgst:          numericToString(o.Cgst),
		Sgst:          numericToString(o.Sgst),
		TotalPrice:    numericToString(o.TotalPrice),
		Status:        o.Status,
		HelpRequested: o.HelpRequested,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}

	if o.CustomerPhone.Valid {
		resp.CustomerPhone = &o.CustomerPhone.String
	}
	if o.HelpRequestedAt.Valid {
		resp.HelpRequestedAt = &o.HelpRequestedAt.Time
	}
	if o.CashReceived.Valid {
		s := numericToString(o.CashReceived)
		resp.CashReceived = &s
	}
	if o.ChangeDue.Valid {
		s := numericToString(o.ChangeDue)
		resp.ChangeDue = &s
	}

	resp.Items = make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		resp.Items[i] = orderItemResponse{
			Name:     item.Name,
			Price:    item.Price.StringFixed(2),
			Quantity: item.Quantity,
			Status:   item.Status,
		}
	}

	return resp
}
