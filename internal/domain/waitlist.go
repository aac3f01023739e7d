package domain

import "time"

// EntryState is the lifecycle state of a waitlist entry. Booked and
// Withdrawn are terminal: the entry is deleted, so a persisted entry is
// always in one of the three states below.
type EntryState string

const (
	EntryStateWaiting EntryState = "waiting"
	EntryStateOffered EntryState = "offered"
	EntryStateExpired EntryState = "expired"
)

// WaitlistEntry is a requester's standing position in the FIFO queue for one
// package. At most one active entry exists per (package, user) pair.
type WaitlistEntry struct {
	ID        string
	PackageID string
	UserID    string
	Email     string
	// Seq is a monotonic insertion sequence. Ordering by (CreatedAt, Seq)
	// gives a total FIFO order even when timestamps collide.
	Seq       int64
	CreatedAt time.Time
	OfferedAt *time.Time
}

// State derives the entry's lifecycle state from its offer timestamp.
func (e WaitlistEntry) State(now time.Time, window time.Duration) EntryState {
	switch {
	case e.OfferedAt == nil:
		return EntryStateWaiting
	case now.Sub(*e.OfferedAt) > window:
		return EntryStateExpired
	default:
		return EntryStateOffered
	}
}

// Before reports whether e precedes other in FIFO order.
func (e WaitlistEntry) Before(other WaitlistEntry) bool {
	if !e.CreatedAt.Equal(other.CreatedAt) {
		return e.CreatedAt.Before(other.CreatedAt)
	}
	return e.Seq < other.Seq
}
