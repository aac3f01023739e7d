package domain

import "time"

// UpcomingTrip is the read model for reminder dispatch: a booking whose
// package departs soon and has not been reminded.
type UpcomingTrip struct {
	BookingID   string
	Email       string
	Destination string
	Country     string
	StartsAt    time.Time
}

// Booking is a confirmed allocation of rooms to a user. It owns the rooms it
// consumed from the package until cancelled.
type Booking struct {
	ID           string
	PackageID    string
	UserID       string
	Email        string
	Rooms        int
	Paid         bool
	PaidAt       *time.Time
	ReminderSent bool
	CreatedAt    time.Time
}
