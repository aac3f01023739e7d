package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cimillas/travel-waitlist/internal/domain"
)

// PackageRepository persists travel packages: the inventory ledger rows the
// whole engine locks on.
type PackageRepository struct {
	pool *pgxpool.Pool
}

func NewPackageRepository(pool *pgxpool.Pool) *PackageRepository {
	return &PackageRepository{pool: pool}
}

func (r *PackageRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const packageColumns = `id, destination, country, starts_at, ends_at, base_price, discount_price, discount_start, discount_end, capacity, available_rooms, visible, last_booking_at, cancel_deadline`

func (r *PackageRepository) CreatePackage(ctx context.Context, pkg domain.Package) error {
	const stmt = `
INSERT INTO packages (` + packageColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	discount := decimal.NullDecimal{}
	if pkg.DiscountPrice != nil {
		discount = decimal.NullDecimal{Decimal: *pkg.DiscountPrice, Valid: true}
	}

	_, err := exec(ctx, r.pool, stmt,
		pkg.ID,
		pkg.Destination,
		pkg.Country,
		pkg.StartsAt,
		pkg.EndsAt,
		pkg.BasePrice,
		discount,
		pkg.DiscountStart,
		pkg.DiscountEnd,
		pkg.Capacity,
		pkg.AvailableRooms,
		pkg.Visible,
		pkg.LastBookingAt,
		pkg.CancelDeadline,
	)
	if err != nil {
		return fmt.Errorf("create package: %w", err)
	}
	return nil
}

func (r *PackageRepository) ListPackages(ctx context.Context) ([]domain.Package, error) {
	const query = `SELECT ` + packageColumns + ` FROM packages ORDER BY starts_at, id`

	rows, err := queryRows(ctx, r.pool, query)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var out []domain.Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("list packages: %w", err)
		}
		out = append(out, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return out, nil
}

func (r *PackageRepository) GetPackageForUpdate(ctx context.Context, packageID string) (domain.Package, error) {
	return getPackageForUpdate(ctx, r.pool, packageID)
}

// AvailableRooms is a read-only snapshot of the ledger count.
func (r *PackageRepository) AvailableRooms(ctx context.Context, packageID string) (int, error) {
	const query = `SELECT available_rooms FROM packages WHERE id = $1`

	var available int
	if err := queryRow(ctx, r.pool, query, packageID).Scan(&available); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return 0, domain.ErrPackageNotFound
		}
		return 0, fmt.Errorf("available rooms: %w", err)
	}
	return available, nil
}

func (r *PackageRepository) UpdateCapacity(ctx context.Context, packageID string, capacity, available int) error {
	const stmt = `UPDATE packages SET capacity = $2, available_rooms = $3 WHERE id = $1`

	tag, err := exec(ctx, r.pool, stmt, packageID, capacity, available)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrConsistencyViolation
		}
		return fmt.Errorf("update capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPackageNotFound
	}
	return nil
}

func (r *PackageRepository) SetVisibility(ctx context.Context, packageID string, visible bool) error {
	const stmt = `UPDATE packages SET visible = $2 WHERE id = $1`

	tag, err := exec(ctx, r.pool, stmt, packageID, visible)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set visibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPackageNotFound
	}
	return nil
}

// getPackageForUpdate locks the package row for the rest of the transaction:
// the per-package critical section every mutating flow enters first.
func getPackageForUpdate(ctx context.Context, pool *pgxpool.Pool, packageID string) (domain.Package, error) {
	const query = `SELECT ` + packageColumns + ` FROM packages WHERE id = $1 FOR UPDATE`

	pkg, err := scanPackage(queryRow(ctx, pool, query, packageID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Package{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Package{}, domain.ErrPackageNotFound
		}
		return domain.Package{}, fmt.Errorf("get package: %w", err)
	}
	return pkg, nil
}

func updateAvailableRooms(ctx context.Context, pool *pgxpool.Pool, packageID string, rooms int) error {
	const stmt = `UPDATE packages SET available_rooms = $2 WHERE id = $1`

	tag, err := exec(ctx, pool, stmt, packageID, rooms)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrConsistencyViolation
		}
		return fmt.Errorf("update available rooms: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPackageNotFound
	}
	return nil
}

func scanPackage(row pgx.Row) (domain.Package, error) {
	var (
		pkg      domain.Package
		discount decimal.NullDecimal
	)
	err := row.Scan(
		&pkg.ID,
		&pkg.Destination,
		&pkg.Country,
		&pkg.StartsAt,
		&pkg.EndsAt,
		&pkg.BasePrice,
		&discount,
		&pkg.DiscountStart,
		&pkg.DiscountEnd,
		&pkg.Capacity,
		&pkg.AvailableRooms,
		&pkg.Visible,
		&pkg.LastBookingAt,
		&pkg.CancelDeadline,
	)
	if err != nil {
		return domain.Package{}, err
	}
	if discount.Valid {
		d := discount.Decimal
		pkg.DiscountPrice = &d
	}
	return pkg, nil
}

func exec(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return pool.Exec(ctx, sql, args...)
}

func queryRow(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return pool.QueryRow(ctx, sql, args...)
}

func queryRows(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return pool.Query(ctx, sql, args...)
}
