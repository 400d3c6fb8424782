package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DownloadTokenRepo defines the interface for download token repository operations
type DownloadTokenRepo interface {
	Create(ctx context.Context, profileID, pageID uuid.UUID, tokenHash, purpose string, expiresAt time.Time) (uuid.UUID, error)
	Consume(ctx context.Context, profileID, pageID uuid.UUID, tokenHash, purpose string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type downloadTokenRepo struct {
	db *sql.DB
}

// NewDownloadTokenRepo creates a new DownloadTokenRepo instance
func NewDownloadTokenRepo(db *sql.DB) DownloadTokenRepo {
	return &downloadTokenRepo{db: db}
}

// Create inserts a new single-use download token row
func (r *downloadTokenRepo) Create(ctx context.Context, profileID, pageID uuid.UUID, tokenHash, purpose string, expiresAt time.Time) (uuid.UUID, error) {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO download_tokens (profile_id, page_id, token_hash, purpose, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, profileID, pageID, tokenHash, purpose, expiresAt).Scan(&idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert download token: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse download token ID: %w", err)
	}
	return id, nil
}

// Consume marks the token consumed in a single conditional update. Concurrent
// redemptions of the same token serialize on the row: exactly one statement
// matches, the rest see zero rows and get ErrNotFound. Scope and purpose are
// part of the WHERE clause, so a token presented for the wrong page, profile,
// or purpose is refused identically to an unknown one.
func (r *downloadTokenRepo) Consume(ctx context.Context, profileID, pageID uuid.UUID, tokenHash, purpose string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE download_tokens SET consumed_at = now()
		WHERE token_hash = $1
		  AND profile_id = $2
		  AND page_id = $3
		  AND purpose = $4
		  AND consumed_at IS NULL
		  AND expires_at > now()
	`, tokenHash, profileID, pageID, purpose)
	if err != nil {
		return fmt.Errorf("consume download token: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes consumed and expired download tokens
func (r *downloadTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM download_tokens WHERE expires_at <= now() OR consumed_at IS NOT NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("delete expired download tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
