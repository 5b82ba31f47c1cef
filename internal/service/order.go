package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service. All are precondition failures
// detected before any write reaches the store.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID    = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrMenuItemUnavailable  = errors.New("menu item is not available")
	ErrCustomerNameRequired = errors.New("customer_name is required")
	ErrTableRequired        = errors.New("table is required")
	ErrInvalidPayment       = errors.New("invalid payment_method")
	ErrCashRequired         = errors.New("cash_received is required for CASH orders")
	ErrInvalidCashAmount    = errors.New("invalid cash_received")
	ErrInsufficientCash     = errors.New("cash_received is less than total")
	ErrOrderNotFound        = errors.New("order not found")
	ErrItemIndex            = errors.New("item index out of range")
	ErrIllegalTransition    = errors.New("illegal status transition")
	// ErrStatusConflict means the order's status changed between read and
	// write; the caller should re-read and retry the action deliberately.
	ErrStatusConflict = errors.New("order status changed, retry")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	NextDailyCount(ctx context.Context, day pgtype.Date) (int32, error)
	GetMenuItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.MenuItem, error)
	GetSetting(ctx context.Context, key string) (database.Setting, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderItems(ctx context.Context, arg database.UpdateOrderItemsParams) (database.Order, error)
	ExtendOrder(ctx context.Context, arg database.ExtendOrderParams) (database.Order, error)
	ConfirmOrder(ctx context.Context, arg database.ConfirmOrderParams) (database.Order, error)
	RequestHelp(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
// StaffPlaced orders start at RECEIVED (payment confirmed at entry);
// customer orders start at PENDING.
type CreateOrderRequest struct {
	TableLabel    string
	CustomerName  string
	CustomerPhone string
	PaymentMethod string
	StaffPlaced   bool
	CashReceived  string
	Items         []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
}

// OrderService handles order numbering and lifecycle transitions.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	now      func() time.Time
}

// NewOrderService creates a new OrderService. store is bound to the pool for
// single-statement operations; newStore builds transaction-bound stores.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore, now: time.Now}
}

// taxRates are read from the settings row "tax"; both default to 2.5%.
type taxRates struct {
	CgstRate decimal.Decimal `json:"cgst_rate"`
	SgstRate decimal.Decimal `json:"sgst_rate"`
}

func defaultTaxRates() taxRates {
	r := decimal.RequireFromString("2.5")
	return taxRates{CgstRate: r, SgstRate: r}
}

func loadTaxRates(ctx context.Context, store OrderStore) (taxRates, error) {
	s, err := store.GetSetting(ctx, "tax")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return defaultTaxRates(), nil
		}
		return taxRates{}, fmt.Errorf("get tax setting: %w", err)
	}
	rates := defaultTaxRates()
	if err := json.Unmarshal(s.Value, &rates); err != nil {
		return taxRates{}, fmt.Errorf("parse tax setting: %w", err)
	}
	return rates, nil
}

// CreateOrder validates, prices the items from the menu, obtains the next
// order number, and inserts the order — counter increment and insert commit
// in one transaction, so a failed insert burns no number.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	if req.CustomerName == "" {
		return database.Order{}, ErrCustomerNameRequired
	}
	if req.TableLabel == "" {
		return database.Order{}, ErrTableRequired
	}
	if !isValidPaymentMethod(req.PaymentMethod) {
		return database.Order{}, ErrInvalidPayment
	}
	if len(req.Items) == 0 {
		return database.Order{}, ErrEmptyItems
	}

	ids := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
		}
		ids[i] = id
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Copy name and price from the menu at order time. Later menu edits never
	// touch placed orders.
	menuItems, err := store.GetMenuItemsByIDs(ctx, ids)
	if err != nil {
		return database.Order{}, fmt.Errorf("get menu items: %w", err)
	}
	byID := make(map[uuid.UUID]database.MenuItem, len(menuItems))
	for _, m := range menuItems {
		byID[m.ID] = m
	}

	subtotal := decimal.Zero
	lines := make([]database.OrderItem, len(req.Items))
	for i, item := range req.Items {
		m, ok := byID[ids[i]]
		if !ok {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrMenuItemNotFound)
		}
		if !m.Available {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrMenuItemUnavailable)
		}
		price := numericToDecimal(m.Price)
		lines[i] = database.OrderItem{
			Name:     m.Name,
			Price:    price,
			Quantity: item.Quantity,
			Status:   enum.OrderItemStatusPending,
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	rates, err := loadTaxRates(ctx, store)
	if err != nil {
		return database.Order{}, err
	}
	cgst := subtotal.Mul(rates.CgstRate).Div(decimal.NewFromInt(100))
	sgst := subtotal.Mul(rates.SgstRate).Div(decimal.NewFromInt(100))
	// Total is rounded to the nearest currency unit.
	total := subtotal.Add(cgst).Add(sgst).Round(0)

	status := enum.OrderStatusPending
	var cashReceived, changeDue pgtype.Numeric
	if req.StaffPlaced {
		status = enum.OrderStatusReceived
		if req.PaymentMethod == enum.PaymentMethodCash {
			received, err := parseCashReceived(req.CashReceived, total)
			if err != nil {
				return database.Order{}, err
			}
			cashReceived = decimalToNumeric(received)
			changeDue = decimalToNumeric(received.Sub(total))
		}
	}

	seq := NewSequenceGenerator(store)
	orderNumber, err := seq.NextOrderNumber(ctx, s.now())
	if err != nil {
		return database.Order{}, err
	}

	var phone pgtype.Text
	if req.CustomerPhone != "" {
		phone = pgtype.Text{String: req.CustomerPhone, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:   orderNumber,
		TableLabel:    req.TableLabel,
		CustomerName:  req.CustomerName,
		CustomerPhone: phone,
		PaymentMethod: req.PaymentMethod,
		Items:         lines,
		Subtotal:      decimalToNumeric(subtotal),
		Cgst:          decimalToNumeric(cgst),
		Sgst:          decimalToNumeric(sgst),
		TotalPrice:    decimalToNumeric(total),
		Status:        status,
		CashReceived:  cashReceived,
		ChangeDue:     changeDue,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// Confirm moves a PENDING order to RECEIVED. For CASH orders the tendered
// amount must cover the total; the guard runs before any write and an
// insufficient tender leaves the order untouched.
func (s *OrderService) Confirm(ctx context.Context, orderID uuid.UUID, cashReceivedStr string) (database.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusPending {
		return database.Order{}, transitionError(order.Status, enum.OrderStatusReceived)
	}

	var cashReceived, changeDue pgtype.Numeric
	if order.PaymentMethod == enum.PaymentMethodCash {
		total := numericToDecimal(order.TotalPrice)
		received, err := parseCashReceived(cashReceivedStr, total)
		if err != nil {
			return database.Order{}, err
		}
		cashReceived = decimalToNumeric(received)
		changeDue = decimalToNumeric(received.Sub(total))
	}

	confirmed, err := s.store.ConfirmOrder(ctx, database.ConfirmOrderParams{
		ID:           orderID,
		CashReceived: cashReceived,
		ChangeDue:    changeDue,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, fmt.Errorf("confirm order: %w", err)
	}
	return confirmed, nil
}

// PackItem marks one line item SERVED and recomputes the overall status from
// the full item list: every item served makes the order SERVED, a partial
// pack makes it PREPARING.
func (s *OrderService) PackItem(ctx context.Context, orderID uuid.UUID, itemIndex int) (database.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusReady || order.Status == enum.OrderStatusHandover {
		return database.Order{}, transitionError(order.Status, enum.OrderStatusServed)
	}
	if itemIndex < 0 || itemIndex >= len(order.Items) {
		return database.Order{}, ErrItemIndex
	}

	items := make([]database.OrderItem, len(order.Items))
	copy(items, order.Items)
	items[itemIndex].Status = enum.OrderItemStatusServed

	updated, err := s.store.UpdateOrderItems(ctx, database.UpdateOrderItemsParams{
		ID:     orderID,
		Items:  items,
		Status: DeriveStatus(items, order.Status),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("update order items: %w", err)
	}
	return updated, nil
}

// DeriveStatus recomputes the overall status from the complete item list.
// All items served => SERVED; some served => PREPARING; none served leaves
// the current status unaffected.
func DeriveStatus(items []database.OrderItem, current string) string {
	if len(items) == 0 {
		return current
	}
	served := 0
	for _, it := range items {
		if it.Status == enum.OrderItemStatusServed {
			served++
		}
	}
	switch {
	case served == len(items):
		return enum.OrderStatusServed
	case served > 0:
		return enum.OrderStatusPreparing
	default:
		return current
	}
}

// allowedTransitions defines the staff-driven order status transitions.
// Key is current status, value is the set of statuses it can move to.
// PENDING -> RECEIVED goes through Confirm; SERVED/PREPARING are derived from
// item packing, not set directly.
var allowedTransitions = map[string][]string{
	enum.OrderStatusServed: {enum.OrderStatusReady},
	enum.OrderStatusReady:  {enum.OrderStatusHandover},
}

func transitionError(current, next string) error {
	return fmt.Errorf("%w: cannot move from %s to %s", ErrIllegalTransition, current, next)
}

// UpdateStatus applies a staff status transition (READY, HANDOVER), rejecting
// anything the state machine does not allow from the order's current status.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, next string) (database.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	legal := false
	for _, allowed := range allowedTransitions[order.Status] {
		if allowed == next {
			legal = true
			break
		}
	}
	if !legal {
		return database.Order{}, transitionError(order.Status, next)
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     next,
		FromStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

// AddItems appends lines to an already-placed order ("order more"): the new
// items' price is added to the totals and the status drops back to PENDING
// from any prior state, reopening the kitchen workflow.
func (s *OrderService) AddItems(ctx context.Context, orderID uuid.UUID, reqItems []CreateOrderItemRequest) (database.Order, error) {
	if len(reqItems) == 0 {
		return database.Order{}, ErrEmptyItems
	}
	ids := make([]uuid.UUID, len(reqItems))
	for i, item := range reqItems {
		if item.Quantity <= 0 {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
		}
		ids[i] = id
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	menuItems, err := s.store.GetMenuItemsByIDs(ctx, ids)
	if err != nil {
		return database.Order{}, fmt.Errorf("get menu items: %w", err)
	}
	byID := make(map[uuid.UUID]database.MenuItem, len(menuItems))
	for _, m := range menuItems {
		byID[m.ID] = m
	}

	items := make([]database.OrderItem, len(order.Items), len(order.Items)+len(reqItems))
	copy(items, order.Items)
	added := decimal.Zero
	for i, item := range reqItems {
		m, ok := byID[ids[i]]
		if !ok {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrMenuItemNotFound)
		}
		if !m.Available {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrMenuItemUnavailable)
		}
		price := numericToDecimal(m.Price)
		items = append(items, database.OrderItem{
			Name:     m.Name,
			Price:    price,
			Quantity: item.Quantity,
			Status:   enum.OrderItemStatusPending,
		})
		added = added.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	// The added lines increase subtotal and total by their price; the tax
	// components recorded at creation are left as they are.
	subtotal := numericToDecimal(order.Subtotal).Add(added)
	total := numericToDecimal(order.TotalPrice).Add(added)

	updated, err := s.store.ExtendOrder(ctx, database.ExtendOrderParams{
		ID:         orderID,
		Items:      items,
		Subtotal:   decimalToNumeric(subtotal),
		TotalPrice: decimalToNumeric(total),
		Status:     enum.OrderStatusPending,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("extend order: %w", err)
	}
	return updated, nil
}

// RequestHelp sets the one-way help flag. Repeat calls are idempotent.
func (s *OrderService) RequestHelp(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	order, err := s.store.RequestHelp(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("request help: %w", err)
	}
	return order, nil
}

// --- Helpers ---

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodUPI:
		return true
	}
	return false
}

func parseCashReceived(s string, total decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, ErrCashRequired
	}
	received, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidCashAmount
	}
	if received.LessThan(total) {
		return decimal.Zero, ErrInsufficientCash
	}
	return received, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
