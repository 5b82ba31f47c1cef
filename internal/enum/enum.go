package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusReceived  = "RECEIVED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusServed    = "SERVED"
	OrderStatusReady     = "READY"
	OrderStatusHandover  = "HANDOVER"
	// Applied only by the archival sweeper when an order moves to history.
	OrderStatusCompleted = "COMPLETED"
)

const (
	OrderItemStatusPending = "PENDING"
	OrderItemStatusServed  = "SERVED"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash = "CASH"
	PaymentMethodCard = "CARD"
	PaymentMethodUPI  = "UPI"
)

// TableTakeaway is the sentinel table label for takeaway orders.
const TableTakeaway = "Takeaway"

const (
	ArchiveReasonDailyCutoff = "DAILY_CUTOFF"
	ArchiveReasonManual      = "MANUAL"
)

const (
	UserRoleStaff = "STAFF"
)

// ── Session key namespaces (Redis) ──

const (
	SessionKindOrdering = "ordering"
	SessionKindServed   = "served"
)
