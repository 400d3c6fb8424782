package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linkpage/server/internal/model"
)

// ErrNotFound is returned when a row does not exist or is not eligible for the
// requested conditional update.
var ErrNotFound = errors.New("not found")

// PageRepo defines the interface for protected page repository operations
type PageRepo interface {
	Create(ctx context.Context, profileID uuid.UUID, pinHash string, visibility model.VisibilityMode, allowRemember bool) (model.ProtectedPage, error)
	GetActiveByID(ctx context.Context, pageID uuid.UUID) (model.ProtectedPage, error)
	GetActiveByProfile(ctx context.Context, profileID uuid.UUID) (model.ProtectedPage, error)
	UpdatePinHash(ctx context.Context, pageID uuid.UUID, pinHash string) error
	SetAllowRemember(ctx context.Context, pageID uuid.UUID, allow bool) error
	SetVisibility(ctx context.Context, pageID uuid.UUID, mode model.VisibilityMode) error
	Deactivate(ctx context.Context, pageID uuid.UUID) error
	Delete(ctx context.Context, pageID uuid.UUID) error
	RecordFailure(ctx context.Context, pageID uuid.UUID, threshold int, lockFor time.Duration) (attempts int, lockedUntil *time.Time, err error)
	ClearExpiredLock(ctx context.Context, pageID uuid.UUID) error
	ResetLockout(ctx context.Context, pageID uuid.UUID) error
}

type pageRepo struct {
	db *sql.DB
}

// NewPageRepo creates a new PageRepo instance
func NewPageRepo(db *sql.DB) PageRepo {
	return &pageRepo{db: db}
}

const pageColumns = `id, profile_id, pin_hash, visibility_mode, is_active, allow_remember,
	       failed_attempts, locked_until, created_at, updated_at`

func scanPage(row *sql.Row) (model.ProtectedPage, error) {
	var p model.ProtectedPage
	var idStr, profileIDStr string
	err := row.Scan(
		&idStr,
		&profileIDStr,
		&p.PinHash,
		&p.VisibilityMode,
		&p.IsActive,
		&p.AllowRemember,
		&p.FailedAttempts,
		&p.LockedUntil,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ProtectedPage{}, ErrNotFound
		}
		return model.ProtectedPage{}, fmt.Errorf("query page: %w", err)
	}
	p.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.ProtectedPage{}, fmt.Errorf("parse page ID: %w", err)
	}
	p.ProfileID, err = uuid.Parse(profileIDStr)
	if err != nil {
		return model.ProtectedPage{}, fmt.Errorf("parse profile ID: %w", err)
	}
	return p, nil
}

// Create inserts a new protected page for a profile
func (r *pageRepo) Create(ctx context.Context, profileID uuid.UUID, pinHash string, visibility model.VisibilityMode, allowRemember bool) (model.ProtectedPage, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO protected_pages (profile_id, pin_hash, visibility_mode, allow_remember)
		VALUES ($1, $2, $3, $4)
		RETURNING `+pageColumns+`
	`, profileID, pinHash, visibility, allowRemember)
	return scanPage(row)
}

// GetActiveByID returns the page if it exists and is active. Inactive pages are
// reported as ErrNotFound so they are indistinguishable from absent ones.
func (r *pageRepo) GetActiveByID(ctx context.Context, pageID uuid.UUID) (model.ProtectedPage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+pageColumns+`
		FROM protected_pages
		WHERE id = $1 AND is_active
	`, pageID)
	return scanPage(row)
}

// GetActiveByProfile returns the most recently created active page for the profile
func (r *pageRepo) GetActiveByProfile(ctx context.Context, profileID uuid.UUID) (model.ProtectedPage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+pageColumns+`
		FROM protected_pages
		WHERE profile_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`, profileID)
	return scanPage(row)
}

// UpdatePinHash replaces the PIN hash and resets the lockout counters, so a
// fresh PIN always starts from a clean attempt budget.
func (r *pageRepo) UpdatePinHash(ctx context.Context, pageID uuid.UUID, pinHash string) error {
	return r.execOne(ctx, `
		UPDATE protected_pages
		SET pin_hash = $2, failed_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1 AND is_active
	`, pageID, pinHash)
}

// SetAllowRemember toggles whether new device trust tokens may be minted
func (r *pageRepo) SetAllowRemember(ctx context.Context, pageID uuid.UUID, allow bool) error {
	return r.execOne(ctx, `
		UPDATE protected_pages SET allow_remember = $2, updated_at = now()
		WHERE id = $1 AND is_active
	`, pageID, allow)
}

// SetVisibility changes how the content layer surfaces the page
func (r *pageRepo) SetVisibility(ctx context.Context, pageID uuid.UUID, mode model.VisibilityMode) error {
	return r.execOne(ctx, `
		UPDATE protected_pages SET visibility_mode = $2, updated_at = now()
		WHERE id = $1 AND is_active
	`, pageID, mode)
}

// Deactivate soft-deletes the page; it then behaves as if it does not exist
func (r *pageRepo) Deactivate(ctx context.Context, pageID uuid.UUID) error {
	return r.execOne(ctx, `
		UPDATE protected_pages SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
	`, pageID)
}

// Delete hard-deletes the page; token rows cascade at the schema level
func (r *pageRepo) Delete(ctx context.Context, pageID uuid.UUID) error {
	return r.execOne(ctx, `DELETE FROM protected_pages WHERE id = $1`, pageID)
}

// RecordFailure increments failed_attempts and, when the new count reaches the
// threshold, sets locked_until in the same statement. The WHERE clause refuses
// the write while a lock is in force, so two racing wrong attempts cannot both
// observe "one attempt left": the loser of the race matches zero rows and gets
// ErrNotFound, which callers treat as locked.
func (r *pageRepo) RecordFailure(ctx context.Context, pageID uuid.UUID, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	var attempts int
	var lockedUntil *time.Time
	err := r.db.QueryRowContext(ctx, `
		UPDATE protected_pages
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE WHEN failed_attempts + 1 >= $2
		                        THEN now() + ($3 * interval '1 second')
		                        ELSE locked_until END,
		    updated_at = now()
		WHERE id = $1
		  AND is_active
		  AND (locked_until IS NULL OR locked_until <= now())
		RETURNING failed_attempts, locked_until
	`, pageID, threshold, int64(lockFor.Seconds())).Scan(&attempts, &lockedUntil)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil, ErrNotFound
		}
		return 0, nil, fmt.Errorf("record failure: %w", err)
	}
	return attempts, lockedUntil, nil
}

// ClearExpiredLock resets the counters once locked_until has passed. Matching
// zero rows is fine: a concurrent request already cleared it.
func (r *pageRepo) ClearExpiredLock(ctx context.Context, pageID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE protected_pages
		SET failed_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1 AND locked_until IS NOT NULL AND locked_until <= now()
	`, pageID)
	if err != nil {
		return fmt.Errorf("clear expired lock: %w", err)
	}
	return nil
}

// ResetLockout zeroes the counters after a successful verification
func (r *pageRepo) ResetLockout(ctx context.Context, pageID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE protected_pages
		SET failed_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`, pageID)
	if err != nil {
		return fmt.Errorf("reset lockout: %w", err)
	}
	return nil
}

// execOne runs a statement that must affect exactly one row
func (r *pageRepo) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec page update: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
