package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cimillas/travel-waitlist/internal/domain"
	"github.com/cimillas/travel-waitlist/internal/testutil"
)

func TestBookingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBookingRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateBooking enforces one booking per user and package", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		packageID := testutil.InsertPackage(t, ctx, pool, "Lisbon", 5, 5)
		now := time.Now().UTC()

		booking := domain.Booking{
			ID:        uuid.NewString(),
			PackageID: packageID,
			UserID:    "alice",
			Email:     "alice@example.com",
			Rooms:     2,
			CreatedAt: now,
		}
		if err := repo.CreateBooking(ctx, booking); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		booking.ID = uuid.NewString()
		if err := repo.CreateBooking(ctx, booking); err != domain.ErrDuplicateBooking {
			t.Fatalf("expected ErrDuplicateBooking, got %v", err)
		}
	})

	t.Run("FindBookingByUser returns booking or nil", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		packageID := testutil.InsertPackage(t, ctx, pool, "Rome", 5, 5)
		bookingID := testutil.InsertBooking(t, ctx, pool, packageID, domain.Booking{
			UserID: "alice", Email: "alice@example.com", Rooms: 1,
		})

		booking, err := repo.FindBookingByUser(ctx, packageID, "alice")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booking == nil || booking.ID != bookingID || booking.Rooms != 1 {
			t.Fatalf("unexpected booking: %+v", booking)
		}

		booking, err = repo.FindBookingByUser(ctx, packageID, "nobody")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booking != nil {
			t.Fatalf("expected nil, got %+v", booking)
		}
	})

	t.Run("CountFutureBookings ignores departed packages", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		futureID := testutil.InsertPackage(t, ctx, pool, "Oslo", 5, 5)

		var pastID string
		if err := pool.QueryRow(ctx, `
INSERT INTO packages (destination, country, starts_at, ends_at, base_price, capacity, available_rooms)
VALUES ('Malta', 'Malta', NOW() - INTERVAL '14 days', NOW() - INTERVAL '7 days', 800.00, 5, 5)
RETURNING id`).Scan(&pastID); err != nil {
			t.Fatalf("insert past package: %v", err)
		}

		testutil.InsertBooking(t, ctx, pool, futureID, domain.Booking{
			UserID: "alice", Email: "alice@example.com", Rooms: 1,
		})
		testutil.InsertBooking(t, ctx, pool, pastID, domain.Booking{
			UserID: "alice", Email: "alice@example.com", Rooms: 1,
		})

		n, err := repo.CountFutureBookings(ctx, "alice", time.Now().UTC())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 future booking, got %d", n)
		}
	})

	t.Run("GetBookingForUpdate returns booking and ErrBookingNotFound", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		packageID := testutil.InsertPackage(t, ctx, pool, "Crete", 5, 5)
		bookingID := testutil.InsertBooking(t, ctx, pool, packageID, domain.Booking{
			UserID: "alice", Email: "alice@example.com", Rooms: 2,
		})

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			booking, err := repo.GetBookingForUpdate(txCtx, bookingID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if booking.ID != bookingID || booking.Rooms != 2 {
				t.Fatalf("unexpected booking: %+v", booking)
			}

			_, err = repo.GetBookingForUpdate(txCtx, uuid.NewString())
			if err != domain.ErrBookingNotFound {
				t.Fatalf("expected ErrBookingNotFound, got %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		_, err = repo.GetBookingForUpdate(ctx, "not-a-uuid")
		if err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("MarkPaid stamps payment", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		packageID := testutil.InsertPackage(t, ctx, pool, "Porto", 5, 5)
		bookingID := testutil.InsertBooking(t, ctx, pool, packageID, domain.Booking{
			UserID: "alice", Email: "alice@example.com", Rooms: 1,
		})

		paidAt := time.Now().UTC().Truncate(time.Second)
		if err := repo.MarkPaid(ctx, bookingID, paidAt); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		booking, err := repo.FindBookingByUser(ctx, packageID, "alice")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !booking.Paid || booking.PaidAt == nil || !booking.PaidAt.Equal(paidAt) {
			t.Fatalf("unexpected payment state: %+v", booking)
		}

		if err := repo.MarkPaid(ctx, uuid.NewString(), paidAt); err != domain.ErrBookingNotFound {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})

	t.Run("DeleteBooking removes the row", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		packageID := testutil.InsertPackage(t, ctx, pool, "Lisbon", 5, 5)
		bookingID := testutil.InsertBooking(t, ctx, pool, packageID, domain.Booking{
			UserID: "alice", Email: "alice@example.com", Rooms: 1,
		})

		if err := repo.DeleteBooking(ctx, bookingID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.DeleteBooking(ctx, bookingID); err != domain.ErrBookingNotFound {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})

	t.Run("UpdateAvailableRooms rejects counts above capacity", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		packageID := testutil.InsertPackage(t, ctx, pool, "Rome", 5, 2)

		if err := repo.UpdateAvailableRooms(ctx, packageID, 4); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.UpdateAvailableRooms(ctx, packageID, 6); err != domain.ErrConsistencyViolation {
			t.Fatalf("expected ErrConsistencyViolation, got %v", err)
		}
	})

	t.Run("ListUnremindedDepartures windows on departure and flag", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		now := time.Now().UTC()

		var soonID, farID string
		if err := pool.QueryRow(ctx, `
INSERT INTO packages (destination, country, starts_at, ends_at, base_price, capacity, available_rooms)
VALUES ('Lisbon', 'Portugal', NOW() + INTERVAL '3 days', NOW() + INTERVAL '10 days', 1200.00, 5, 5)
RETURNING id`).Scan(&soonID); err != nil {
			t.Fatalf("insert package: %v", err)
		}
		if err := pool.QueryRow(ctx, `
INSERT INTO packages (destination, country, starts_at, ends_at, base_price, capacity, available_rooms)
VALUES ('Rome', 'Italy', NOW() + INTERVAL '30 days', NOW() + INTERVAL '37 days', 1500.00, 5, 5)
RETURNING id`).Scan(&farID); err != nil {
			t.Fatalf("insert package: %v", err)
		}

		dueID := testutil.InsertBooking(t, ctx, pool, soonID, domain.Booking{
			UserID: "alice", Email: "alice@example.com", Rooms: 1,
		})
		testutil.InsertBooking(t, ctx, pool, soonID, domain.Booking{
			UserID: "bob", Email: "bob@example.com", Rooms: 1, ReminderSent: true,
		})
		testutil.InsertBooking(t, ctx, pool, farID, domain.Booking{
			UserID: "carol", Email: "carol@example.com", Rooms: 1,
		})

		trips, err := repo.ListUnremindedDepartures(ctx, now, now.Add(7*24*time.Hour))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(trips) != 1 {
			t.Fatalf("expected 1 trip, got %d", len(trips))
		}
		if trips[0].BookingID != dueID || trips[0].Destination != "Lisbon" {
			t.Fatalf("unexpected trip: %+v", trips[0])
		}

		if err := repo.MarkReminderSent(ctx, dueID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		trips, err = repo.ListUnremindedDepartures(ctx, now, now.Add(7*24*time.Hour))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(trips) != 0 {
			t.Fatalf("expected no trips, got %d", len(trips))
		}
	})
}
