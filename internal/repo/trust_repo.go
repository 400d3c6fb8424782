package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linkpage/server/internal/model"
)

// TrustTokenRepo defines the interface for device trust token repository operations
type TrustTokenRepo interface {
	Create(ctx context.Context, profileID, pageID uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error)
	FindValidByHash(ctx context.Context, tokenHash string) (model.DeviceTrustToken, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type trustTokenRepo struct {
	db *sql.DB
}

// NewTrustTokenRepo creates a new TrustTokenRepo instance
func NewTrustTokenRepo(db *sql.DB) TrustTokenRepo {
	return &trustTokenRepo{db: db}
}

// Create inserts a new trust token row. Multiple unrevoked tokens may coexist
// per page; each device holds its own credential.
func (r *trustTokenRepo) Create(ctx context.Context, profileID, pageID uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO device_trust_tokens (profile_id, page_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, profileID, pageID, tokenHash, expiresAt).Scan(&idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert trust token: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse trust token ID: %w", err)
	}
	return id, nil
}

// FindValidByHash returns the token only if it is unrevoked, unexpired, and its
// page is still active. Unknown, expired, revoked, and orphaned tokens all
// collapse to ErrNotFound so callers cannot tell them apart.
func (r *trustTokenRepo) FindValidByHash(ctx context.Context, tokenHash string) (model.DeviceTrustToken, error) {
	var t model.DeviceTrustToken
	var idStr, profileIDStr, pageIDStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.profile_id, t.page_id, t.token_hash, t.issued_at, t.expires_at, t.revoked_at
		FROM device_trust_tokens t
		JOIN protected_pages p ON p.id = t.page_id
		WHERE t.token_hash = $1
		  AND t.revoked_at IS NULL
		  AND t.expires_at > now()
		  AND p.is_active
	`, tokenHash).Scan(
		&idStr,
		&profileIDStr,
		&pageIDStr,
		&t.TokenHash,
		&t.IssuedAt,
		&t.ExpiresAt,
		&t.RevokedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.DeviceTrustToken{}, ErrNotFound
		}
		return model.DeviceTrustToken{}, fmt.Errorf("find trust token: %w", err)
	}
	t.ID, _ = uuid.Parse(idStr)
	t.ProfileID, _ = uuid.Parse(profileIDStr)
	t.PageID, _ = uuid.Parse(pageIDStr)
	return t, nil
}

// RevokeByHash sets revoked_at for the token. Idempotent: revoking an unknown
// or already-revoked token affects zero rows and is not an error.
func (r *trustTokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE device_trust_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke trust token: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens past their expiry; expired tokens are already
// treated as absent at read time, this just reclaims the rows.
func (r *trustTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM device_trust_tokens WHERE expires_at <= now()
	`)
	if err != nil {
		return 0, fmt.Errorf("delete expired trust tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
