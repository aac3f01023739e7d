package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cimillas/travel-waitlist/internal/clock"
	"github.com/cimillas/travel-waitlist/internal/domain"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetPackageForUpdate(ctx context.Context, packageID string) (domain.Package, error)
	UpdateAvailableRooms(ctx context.Context, packageID string, rooms int) error
	FindBookingByUser(ctx context.Context, packageID, userID string) (*domain.Booking, error)
	CountFutureBookings(ctx context.Context, userID string, now time.Time) (int, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error)
	DeleteBooking(ctx context.Context, bookingID string) error
	MarkPaid(ctx context.Context, bookingID string, at time.Time) error
	FindEntry(ctx context.Context, packageID, userID string) (*domain.WaitlistEntry, error)
	ListEntries(ctx context.Context, packageID string) ([]domain.WaitlistEntry, error)
	DeleteEntry(ctx context.Context, entryID string) error
}

// maxFutureBookings caps how many bookings for not-yet-started packages one
// user may hold.
const maxFutureBookings = 3

// BookingService records confirmed reservations and their cancellation,
// consuming and releasing rooms against the package ledger.
type BookingService struct {
	repo        BookingRepository
	queue       QueueAdvancer
	clock       clock.Clock
	logger      *zap.Logger
	offerWindow time.Duration
}

func NewBookingService(repo BookingRepository, queue QueueAdvancer, clk clock.Clock, logger *zap.Logger, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:        repo,
		queue:       queue,
		clock:       clk,
		logger:      logger,
		offerWindow: DefaultOfferWindow,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithBookingOfferWindow aligns the earmark check with the coordinator's
// offer window.
func WithBookingOfferWindow(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.offerWindow = d
		}
	}
}

type BookInput struct {
	PackageID string
	UserID    string
	Email     string
	Rooms     int
}

// Book creates a booking. Preconditions are checked in order, first failure
// wins: no duplicate booking, last-booking date not passed, fewer than three
// future bookings held, and enough bookable rooms. A live offer earmarks one
// room for its offeree, so other requesters book against availability minus
// one. On success the requester's own waitlist entry, if any, is removed:
// booking supersedes queueing.
func (s *BookingService) Book(ctx context.Context, in BookInput) (domain.Booking, error) {
	if in.PackageID == "" || in.UserID == "" {
		return domain.Booking{}, domain.ErrInvalidID
	}
	if in.Rooms <= 0 {
		return domain.Booking{}, domain.ErrInvalidRooms
	}

	now := s.clock.Now()
	var result domain.Booking

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		pkg, err := s.repo.GetPackageForUpdate(txCtx, in.PackageID)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindBookingByUser(txCtx, in.PackageID, in.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateBooking
		}

		if !pkg.BookingOpen(now) {
			return domain.ErrBookingDeadlinePassed
		}

		future, err := s.repo.CountFutureBookings(txCtx, in.UserID, now)
		if err != nil {
			return err
		}
		if future >= maxFutureBookings {
			return domain.ErrBookingLimitReached
		}

		bookable, err := s.bookableRooms(txCtx, pkg, in.UserID, now)
		if err != nil {
			return err
		}
		if in.Rooms > bookable {
			return domain.ErrInsufficientCapacity
		}

		if err := pkg.Reserve(in.Rooms); err != nil {
			return err
		}
		if err := s.repo.UpdateAvailableRooms(txCtx, pkg.ID, pkg.AvailableRooms); err != nil {
			return err
		}

		booking := domain.Booking{
			ID:        newID(),
			PackageID: in.PackageID,
			UserID:    in.UserID,
			Email:     in.Email,
			Rooms:     in.Rooms,
			CreatedAt: now,
		}
		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			return err
		}

		entry, err := s.repo.FindEntry(txCtx, in.PackageID, in.UserID)
		if err != nil {
			return err
		}
		if entry != nil {
			if err := s.repo.DeleteEntry(txCtx, entry.ID); err != nil {
				return err
			}
		}

		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if err := s.queue.Reevaluate(ctx, in.PackageID); err != nil {
		s.logger.Error("re-evaluation after booking failed",
			zap.String("package_id", in.PackageID),
			zap.Error(err),
		)
	}
	return result, nil
}

// Cancel deletes a booking and releases its rooms, then re-evaluates the
// package's queue so freed capacity is offered.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) error {
	if bookingID == "" {
		return domain.ErrInvalidID
	}

	now := s.clock.Now()
	var packageID string

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}

		pkg, err := s.repo.GetPackageForUpdate(txCtx, booking.PackageID)
		if err != nil {
			return err
		}
		if !pkg.CancellationOpen(now) {
			return domain.ErrCancellationDeadlinePassed
		}

		if err := pkg.Release(booking.Rooms); err != nil {
			s.logger.Error("release exceeded capacity",
				zap.String("package_id", pkg.ID),
				zap.String("booking_id", bookingID),
				zap.Int("rooms", booking.Rooms),
			)
			return err
		}
		if err := s.repo.UpdateAvailableRooms(txCtx, pkg.ID, pkg.AvailableRooms); err != nil {
			return err
		}
		if err := s.repo.DeleteBooking(txCtx, bookingID); err != nil {
			return err
		}

		packageID = booking.PackageID
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.queue.Reevaluate(ctx, packageID); err != nil {
		s.logger.Error("re-evaluation after cancellation failed",
			zap.String("package_id", packageID),
			zap.Error(err),
		)
	}
	return nil
}

// Pay marks a booking paid. The payment itself is simulated elsewhere; only
// the state transition is recorded here.
func (s *BookingService) Pay(ctx context.Context, bookingID string) (domain.Booking, error) {
	if bookingID == "" {
		return domain.Booking{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Booking

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if booking.Paid {
			return domain.ErrAlreadyPaid
		}
		if err := s.repo.MarkPaid(txCtx, bookingID, now); err != nil {
			return err
		}
		booking.Paid = true
		booking.PaidAt = &now
		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// bookableRooms is availability minus the room earmarked for a live offeree
// other than the requester. Keeping that room out of reach is what makes a
// live offer with zero availability unreachable.
func (s *BookingService) bookableRooms(ctx context.Context, pkg domain.Package, userID string, now time.Time) (int, error) {
	entries, err := s.repo.ListEntries(ctx, pkg.ID)
	if err != nil {
		return 0, err
	}

	bookable := pkg.AvailableRooms
	for _, e := range entries {
		switch e.State(now, s.offerWindow) {
		case domain.EntryStateExpired:
			continue
		case domain.EntryStateOffered:
			if e.UserID != userID {
				bookable--
			}
		}
		break
	}
	if bookable < 0 {
		bookable = 0
	}
	return bookable, nil
}
