package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/travel-waitlist/internal/domain"
)

// WaitlistRepository persists queue entries. Ordering is (created_at, seq):
// seq is a serial the database assigns on insert, so two entries created in
// the same instant still have a total order.
type WaitlistRepository struct {
	pool *pgxpool.Pool
}

func NewWaitlistRepository(pool *pgxpool.Pool) *WaitlistRepository {
	return &WaitlistRepository{pool: pool}
}

func (r *WaitlistRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *WaitlistRepository) GetPackageForUpdate(ctx context.Context, packageID string) (domain.Package, error) {
	return getPackageForUpdate(ctx, r.pool, packageID)
}

const entryColumns = `id, package_id, user_id, email, seq, created_at, offered_at`

func (r *WaitlistRepository) FindEntry(ctx context.Context, packageID, userID string) (*domain.WaitlistEntry, error) {
	return findEntry(ctx, r.pool, packageID, userID)
}

func (r *WaitlistRepository) CreateEntry(ctx context.Context, entry domain.WaitlistEntry) (domain.WaitlistEntry, error) {
	const stmt = `
INSERT INTO waitlist_entries (id, package_id, user_id, email, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING seq`

	err := queryRow(ctx, r.pool, stmt,
		entry.ID,
		entry.PackageID,
		entry.UserID,
		entry.Email,
		entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WaitlistEntry{}, domain.ErrAlreadyQueued
		}
		return domain.WaitlistEntry{}, fmt.Errorf("create entry: %w", err)
	}
	return entry, nil
}

func (r *WaitlistRepository) DeleteEntry(ctx context.Context, entryID string) error {
	return deleteEntry(ctx, r.pool, entryID)
}

func (r *WaitlistRepository) ListEntries(ctx context.Context, packageID string) ([]domain.WaitlistEntry, error) {
	return listEntries(ctx, r.pool, packageID)
}

func (r *WaitlistRepository) MarkOffered(ctx context.Context, entryID string, at time.Time) error {
	const stmt = `UPDATE waitlist_entries SET offered_at = $2 WHERE id = $1`

	tag, err := exec(ctx, r.pool, stmt, entryID, at)
	if err != nil {
		return fmt.Errorf("mark offered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// CountEarlier counts entries ahead of the given one in queue order.
func (r *WaitlistRepository) CountEarlier(ctx context.Context, entry domain.WaitlistEntry) (int, error) {
	const query = `
SELECT COUNT(*) FROM waitlist_entries
WHERE package_id = $1 AND (created_at, seq) < ($2, $3)`

	var n int
	if err := queryRow(ctx, r.pool, query, entry.PackageID, entry.CreatedAt, entry.Seq).Scan(&n); err != nil {
		return 0, fmt.Errorf("count earlier: %w", err)
	}
	return n, nil
}

// ListQueuedPackageIDs returns the packages that currently have anyone
// waiting, for the periodic sweep.
func (r *WaitlistRepository) ListQueuedPackageIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT package_id FROM waitlist_entries`

	rows, err := queryRows(ctx, r.pool, query)
	if err != nil {
		return nil, fmt.Errorf("list queued packages: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list queued packages: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list queued packages: %w", err)
	}
	return ids, nil
}

func findEntry(ctx context.Context, pool *pgxpool.Pool, packageID, userID string) (*domain.WaitlistEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM waitlist_entries WHERE package_id = $1 AND user_id = $2`

	entry, err := scanEntry(queryRow(ctx, pool, query, packageID, userID))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find entry: %w", err)
	}
	return &entry, nil
}

func listEntries(ctx context.Context, pool *pgxpool.Pool, packageID string) ([]domain.WaitlistEntry, error) {
	const query = `
SELECT ` + entryColumns + ` FROM waitlist_entries
WHERE package_id = $1
ORDER BY created_at, seq`

	rows, err := queryRows(ctx, pool, query, packageID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []domain.WaitlistEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

func deleteEntry(ctx context.Context, pool *pgxpool.Pool, entryID string) error {
	const stmt = `DELETE FROM waitlist_entries WHERE id = $1`

	tag, err := exec(ctx, pool, stmt, entryID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (domain.WaitlistEntry, error) {
	var entry domain.WaitlistEntry
	err := row.Scan(
		&entry.ID,
		&entry.PackageID,
		&entry.UserID,
		&entry.Email,
		&entry.Seq,
		&entry.CreatedAt,
		&entry.OfferedAt,
	)
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	return entry, nil
}
