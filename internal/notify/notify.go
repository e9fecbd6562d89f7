package notify

import "context"

// Event is a push notification delivered to connected clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notifier delivers events to users and role groups. Delivery is
// best-effort: implementations log failures and never return them to
// the caller, so a dead socket cannot fail a committed transaction.
type Notifier interface {
	NotifyUser(ctx context.Context, userID string, event Event)
	NotifyRole(ctx context.Context, role string, event Event)
}

// Noop discards all events. Used in tests and as a fallback when no
// transport is configured.
type Noop struct{}

func (Noop) NotifyUser(ctx context.Context, userID string, event Event) {}
func (Noop) NotifyRole(ctx context.Context, role string, event Event)   {}
