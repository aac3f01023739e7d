package app

import "context"

// Notifier delivers offer and reminder messages to a requester's contact
// address. Delivery is best-effort: callers log failures and never roll back
// state because of them.
type Notifier interface {
	Notify(ctx context.Context, address, subject, body string) error
}

// QueueAdvancer re-runs the idempotent check-and-advance pass for one
// package's waiting queue.
type QueueAdvancer interface {
	Reevaluate(ctx context.Context, packageID string) error
}
