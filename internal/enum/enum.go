package enum

// --- State machines (CHECK constrained in DB) ---

const (
	TabStateOpen = "OPEN"
	TabStatePaid = "PAID"
)

const (
	OrderStateOrdered   = "ORDERED"
	OrderStatePreparing = "PREPARING"
	OrderStateToServe   = "TO_SERVE"
	OrderStateServed    = "SERVED"
	OrderStateVoided    = "VOIDED"
)

const (
	TillStateOpen    = "OPEN"
	TillStateStopped = "STOPPED"
	TillStateCounted = "COUNTED"
)

const (
	ResolutionApproved = "APPROVED"
	ResolutionRejected = "REJECTED"
)

// --- Roles ---

const (
	RoleWaiter   = "waiter"
	RoleManager  = "manager"
	RoleDirector = "director"
)

// --- Notification event types ---

const (
	EventVoidRequestCreated      = "void_request_created"
	EventVoidRequestResolved     = "void_request_resolved"
	EventTransferRequestCreated  = "tab_transfer_request_created"
	EventTransferRequestResolved = "tab_transfer_request_resolved"
)
