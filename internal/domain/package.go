package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Package represents an offerable travel package with finite room capacity.
// AvailableRooms is the single source of truth for free units and is mutated
// only through Reserve and Release.
type Package struct {
	ID             string
	Destination    string
	Country        string
	StartsAt       time.Time
	EndsAt         time.Time
	BasePrice      decimal.Decimal
	DiscountPrice  *decimal.Decimal
	DiscountStart  *time.Time
	DiscountEnd    *time.Time
	Capacity       int
	AvailableRooms int
	Visible        bool
	// LastBookingAt is the last instant a booking may be created, if set.
	LastBookingAt *time.Time
	// CancelDeadline is the last instant a booking may be cancelled, if set.
	CancelDeadline *time.Time
}

// Reserve decrements available rooms, failing without mutation when fewer
// than the requested rooms remain.
func (p *Package) Reserve(rooms int) error {
	if rooms <= 0 {
		return ErrInvalidRooms
	}
	if rooms > p.AvailableRooms {
		return ErrInsufficientCapacity
	}
	p.AvailableRooms -= rooms
	return nil
}

// Release increments available rooms. The count is clamped at capacity; a
// release that would exceed capacity clamps and reports
// ErrConsistencyViolation rather than absorbing the overflow silently.
func (p *Package) Release(rooms int) error {
	if rooms <= 0 {
		return ErrInvalidRooms
	}
	p.AvailableRooms += rooms
	if p.AvailableRooms > p.Capacity {
		p.AvailableRooms = p.Capacity
		return ErrConsistencyViolation
	}
	return nil
}

// HasActiveDiscount reports whether a discounted price applies at now.
func (p Package) HasActiveDiscount(now time.Time) bool {
	return p.DiscountPrice != nil &&
		p.DiscountStart != nil &&
		p.DiscountEnd != nil &&
		!now.Before(*p.DiscountStart) &&
		!now.After(*p.DiscountEnd)
}

// CurrentPrice returns the discounted price inside the discount window and
// the base price otherwise.
func (p Package) CurrentPrice(now time.Time) decimal.Decimal {
	if p.HasActiveDiscount(now) {
		return *p.DiscountPrice
	}
	return p.BasePrice
}

// BookingOpen reports whether the last-booking date, if set, has not passed.
func (p Package) BookingOpen(now time.Time) bool {
	return p.LastBookingAt == nil || !now.After(*p.LastBookingAt)
}

// CancellationOpen reports whether the cancellation deadline, if set, has
// not passed.
func (p Package) CancellationOpen(now time.Time) bool {
	return p.CancelDeadline == nil || !now.After(*p.CancelDeadline)
}
