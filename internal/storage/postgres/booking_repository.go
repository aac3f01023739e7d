package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/travel-waitlist/internal/domain"
)

// BookingRepository persists bookings. Conversion from a queue entry to a
// booking happens inside one transaction, so it also reads and deletes
// waitlist entries.
type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *BookingRepository) GetPackageForUpdate(ctx context.Context, packageID string) (domain.Package, error) {
	return getPackageForUpdate(ctx, r.pool, packageID)
}

func (r *BookingRepository) UpdateAvailableRooms(ctx context.Context, packageID string, rooms int) error {
	return updateAvailableRooms(ctx, r.pool, packageID, rooms)
}

const bookingColumns = `id, package_id, user_id, email, rooms, paid, paid_at, reminder_sent, created_at`

func (r *BookingRepository) FindBookingByUser(ctx context.Context, packageID, userID string) (*domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE package_id = $1 AND user_id = $2`

	booking, err := scanBooking(queryRow(ctx, r.pool, query, packageID, userID))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &booking, nil
}

// CountFutureBookings counts the user's bookings on packages that have not
// departed yet, across all packages.
func (r *BookingRepository) CountFutureBookings(ctx context.Context, userID string, now time.Time) (int, error) {
	const query = `
SELECT COUNT(*) FROM bookings b
JOIN packages p ON p.id = b.package_id
WHERE b.user_id = $1 AND p.starts_at > $2`

	var n int
	if err := queryRow(ctx, r.pool, query, userID, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("count future bookings: %w", err)
	}
	return n, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	const stmt = `
INSERT INTO bookings (` + bookingColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := exec(ctx, r.pool, stmt,
		booking.ID,
		booking.PackageID,
		booking.UserID,
		booking.Email,
		booking.Rooms,
		booking.Paid,
		booking.PaidAt,
		booking.ReminderSent,
		booking.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateBooking
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	booking, err := scanBooking(queryRow(ctx, r.pool, query, bookingID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) DeleteBooking(ctx context.Context, bookingID string) error {
	const stmt = `DELETE FROM bookings WHERE id = $1`

	tag, err := exec(ctx, r.pool, stmt, bookingID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) MarkPaid(ctx context.Context, bookingID string, at time.Time) error {
	const stmt = `UPDATE bookings SET paid = TRUE, paid_at = $2 WHERE id = $1`

	tag, err := exec(ctx, r.pool, stmt, bookingID, at)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) FindEntry(ctx context.Context, packageID, userID string) (*domain.WaitlistEntry, error) {
	return findEntry(ctx, r.pool, packageID, userID)
}

func (r *BookingRepository) ListEntries(ctx context.Context, packageID string) ([]domain.WaitlistEntry, error) {
	return listEntries(ctx, r.pool, packageID)
}

func (r *BookingRepository) DeleteEntry(ctx context.Context, entryID string) error {
	return deleteEntry(ctx, r.pool, entryID)
}

// ListUnremindedDepartures finds paid-or-unpaid bookings departing inside the
// window that have not been reminded yet.
func (r *BookingRepository) ListUnremindedDepartures(ctx context.Context, from, until time.Time) ([]domain.UpcomingTrip, error) {
	const query = `
SELECT b.id, b.email, p.destination, p.country, p.starts_at
FROM bookings b
JOIN packages p ON p.id = b.package_id
WHERE b.reminder_sent = FALSE AND p.starts_at >= $1 AND p.starts_at <= $2
ORDER BY p.starts_at, b.id`

	rows, err := queryRows(ctx, r.pool, query, from, until)
	if err != nil {
		return nil, fmt.Errorf("list unreminded departures: %w", err)
	}
	defer rows.Close()

	var out []domain.UpcomingTrip
	for rows.Next() {
		var trip domain.UpcomingTrip
		if err := rows.Scan(&trip.BookingID, &trip.Email, &trip.Destination, &trip.Country, &trip.StartsAt); err != nil {
			return nil, fmt.Errorf("list unreminded departures: %w", err)
		}
		out = append(out, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unreminded departures: %w", err)
	}
	return out, nil
}

func (r *BookingRepository) MarkReminderSent(ctx context.Context, bookingID string) error {
	const stmt = `UPDATE bookings SET reminder_sent = TRUE WHERE id = $1`

	tag, err := exec(ctx, r.pool, stmt, bookingID)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var booking domain.Booking
	err := row.Scan(
		&booking.ID,
		&booking.PackageID,
		&booking.UserID,
		&booking.Email,
		&booking.Rooms,
		&booking.Paid,
		&booking.PaidAt,
		&booking.ReminderSent,
		&booking.CreatedAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	return booking, nil
}
