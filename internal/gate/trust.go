package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linkpage/server/internal/model"
	"github.com/linkpage/server/internal/repo"
)

// DefaultTrustTokenTTL bounds the lifetime of a device trust token. Never
// infinite; a remembered device re-verifies after this at the latest.
const DefaultTrustTokenTTL = 30 * 24 * time.Hour

// TrustIssuer mints, validates, and revokes device trust tokens
type TrustIssuer struct {
	tokens repo.TrustTokenRepo
	ttl    time.Duration
}

// NewTrustIssuer creates a trust issuer over the trust token repository
func NewTrustIssuer(tokens repo.TrustTokenRepo, ttl time.Duration) *TrustIssuer {
	if ttl <= 0 {
		ttl = DefaultTrustTokenTTL
	}
	return &TrustIssuer{tokens: tokens, ttl: ttl}
}

// Issue mints a trust token bound to the page. Callers must only invoke this
// after a verified unlock; the issuer enforces the owner's allow_remember
// flag on top of that.
func (i *TrustIssuer) Issue(ctx context.Context, page model.ProtectedPage) (token string, expiresAt time.Time, err error) {
	if !page.AllowRemember {
		return "", time.Time{}, ErrRememberNotAllowed
	}
	token, hashHex, err := GenerateToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate trust token: %w", err)
	}
	expiresAt = time.Now().Add(i.ttl)
	if _, err := i.tokens.Create(ctx, page.ProfileID, page.ID, hashHex, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate resolves a presented credential to its page binding. Unknown,
// expired, and revoked tokens, and tokens whose page has since been
// deactivated, all return ok=false with no further detail.
func (i *TrustIssuer) Validate(ctx context.Context, token string) (model.DeviceTrustToken, bool) {
	t, err := i.tokens.FindValidByHash(ctx, HashToken(token))
	if err != nil {
		return model.DeviceTrustToken{}, false
	}
	return t, true
}

// Revoke permanently invalidates a presented credential. Idempotent: revoking
// an unknown or already-revoked token is not an error.
func (i *TrustIssuer) Revoke(ctx context.Context, token string) error {
	err := i.tokens.RevokeByHash(ctx, HashToken(token))
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}
