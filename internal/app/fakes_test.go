package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cimillas/travel-waitlist/internal/domain"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. Its
// WithTx applies mutations directly; services under test are exercised for
// their policy decisions, not transactional rollback.
type fakeStore struct {
	packages map[string]*domain.Package
	entries  []*domain.WaitlistEntry
	bookings map[string]*domain.Booking
	nextSeq  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		packages: make(map[string]*domain.Package),
		bookings: make(map[string]*domain.Booking),
	}
}

func (f *fakeStore) addPackage(p domain.Package) {
	cp := p
	f.packages[p.ID] = &cp
}

func (f *fakeStore) addEntry(e domain.WaitlistEntry) domain.WaitlistEntry {
	f.nextSeq++
	e.Seq = f.nextSeq
	cp := e
	f.entries = append(f.entries, &cp)
	return e
}

func (f *fakeStore) addBooking(b domain.Booking) {
	cp := b
	f.bookings[b.ID] = &cp
}

func (f *fakeStore) entryByID(id string) *domain.WaitlistEntry {
	for _, e := range f.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) GetPackageForUpdate(_ context.Context, packageID string) (domain.Package, error) {
	p, ok := f.packages[packageID]
	if !ok {
		return domain.Package{}, domain.ErrPackageNotFound
	}
	return *p, nil
}

func (f *fakeStore) UpdateAvailableRooms(_ context.Context, packageID string, rooms int) error {
	p, ok := f.packages[packageID]
	if !ok {
		return domain.ErrPackageNotFound
	}
	p.AvailableRooms = rooms
	return nil
}

func (f *fakeStore) UpdateCapacity(_ context.Context, packageID string, capacity, available int) error {
	p, ok := f.packages[packageID]
	if !ok {
		return domain.ErrPackageNotFound
	}
	p.Capacity = capacity
	p.AvailableRooms = available
	return nil
}

func (f *fakeStore) SetVisibility(_ context.Context, packageID string, visible bool) error {
	p, ok := f.packages[packageID]
	if !ok {
		return domain.ErrPackageNotFound
	}
	p.Visible = visible
	return nil
}

func (f *fakeStore) CreatePackage(_ context.Context, pkg domain.Package) error {
	cp := pkg
	f.packages[pkg.ID] = &cp
	return nil
}

func (f *fakeStore) ListPackages(_ context.Context) ([]domain.Package, error) {
	out := make([]domain.Package, 0, len(f.packages))
	for _, p := range f.packages {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListEntries(_ context.Context, packageID string) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	for _, e := range f.entries {
		if e.PackageID == packageID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (f *fakeStore) FindEntry(_ context.Context, packageID, userID string) (*domain.WaitlistEntry, error) {
	for _, e := range f.entries {
		if e.PackageID == packageID && e.UserID == userID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateEntry(_ context.Context, entry domain.WaitlistEntry) (domain.WaitlistEntry, error) {
	for _, e := range f.entries {
		if e.PackageID == entry.PackageID && e.UserID == entry.UserID {
			return domain.WaitlistEntry{}, domain.ErrAlreadyQueued
		}
	}
	return f.addEntry(entry), nil
}

func (f *fakeStore) DeleteEntry(_ context.Context, entryID string) error {
	for i, e := range f.entries {
		if e.ID == entryID {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return domain.ErrEntryNotFound
}

func (f *fakeStore) MarkOffered(_ context.Context, entryID string, at time.Time) error {
	e := f.entryByID(entryID)
	if e == nil {
		return domain.ErrEntryNotFound
	}
	e.OfferedAt = &at
	return nil
}

func (f *fakeStore) CountEarlier(_ context.Context, entry domain.WaitlistEntry) (int, error) {
	count := 0
	for _, e := range f.entries {
		if e.PackageID == entry.PackageID && e.Before(entry) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListQueuedPackageIDs(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range f.entries {
		if _, ok := seen[e.PackageID]; ok {
			continue
		}
		seen[e.PackageID] = struct{}{}
		out = append(out, e.PackageID)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) FindBookingByUser(_ context.Context, packageID, userID string) (*domain.Booking, error) {
	for _, b := range f.bookings {
		if b.PackageID == packageID && b.UserID == userID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CountFutureBookings(_ context.Context, userID string, now time.Time) (int, error) {
	count := 0
	for _, b := range f.bookings {
		if b.UserID != userID {
			continue
		}
		pkg, ok := f.packages[b.PackageID]
		if !ok {
			continue
		}
		if pkg.StartsAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreateBooking(_ context.Context, booking domain.Booking) error {
	for _, b := range f.bookings {
		if b.PackageID == booking.PackageID && b.UserID == booking.UserID {
			return domain.ErrDuplicateBooking
		}
	}
	f.addBooking(booking)
	return nil
}

func (f *fakeStore) GetBookingForUpdate(_ context.Context, bookingID string) (domain.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return *b, nil
}

func (f *fakeStore) DeleteBooking(_ context.Context, bookingID string) error {
	if _, ok := f.bookings[bookingID]; !ok {
		return domain.ErrBookingNotFound
	}
	delete(f.bookings, bookingID)
	return nil
}

func (f *fakeStore) MarkPaid(_ context.Context, bookingID string, at time.Time) error {
	b, ok := f.bookings[bookingID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.Paid = true
	b.PaidAt = &at
	return nil
}

func (f *fakeStore) ListUnremindedDepartures(_ context.Context, from, until time.Time) ([]domain.UpcomingTrip, error) {
	var out []domain.UpcomingTrip
	for _, b := range f.bookings {
		if b.ReminderSent {
			continue
		}
		pkg, ok := f.packages[b.PackageID]
		if !ok {
			continue
		}
		if pkg.StartsAt.Before(from) || pkg.StartsAt.After(until) {
			continue
		}
		out = append(out, domain.UpcomingTrip{
			BookingID:   b.ID,
			Email:       b.Email,
			Destination: pkg.Destination,
			Country:     pkg.Country,
			StartsAt:    pkg.StartsAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	return out, nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, bookingID string) error {
	b, ok := f.bookings[bookingID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.ReminderSent = true
	return nil
}

type sentMessage struct {
	address string
	subject string
	body    string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, address, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{address: address, subject: subject, body: body})
	return nil
}

func (f *fakeNotifier) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.address)
	}
	return out
}

type fakeAdvancer struct {
	calls []string
	err   error
}

func (f *fakeAdvancer) Reevaluate(_ context.Context, packageID string) error {
	f.calls = append(f.calls, packageID)
	return f.err
}
