package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linkpage/server/internal/model"
	"github.com/linkpage/server/internal/repo"
)

// DefaultDownloadTokenTTL is deliberately short: the token is redeemed by the
// same client flow that just unlocked the page.
const DefaultDownloadTokenTTL = 10 * time.Minute

// PurposeVCard authorizes one personal vCard fetch
const PurposeVCard = "vcard"

// DownloadIssuer mints and redeems short-lived single-use download tokens
type DownloadIssuer struct {
	tokens repo.DownloadTokenRepo
	ttl    time.Duration
}

// NewDownloadIssuer creates a download issuer over the download token repository
func NewDownloadIssuer(tokens repo.DownloadTokenRepo, ttl time.Duration) *DownloadIssuer {
	if ttl <= 0 {
		ttl = DefaultDownloadTokenTTL
	}
	return &DownloadIssuer{tokens: tokens, ttl: ttl}
}

// Issue mints a download token bound to the page and purpose. Callers must
// only invoke this as a side effect of a successful PIN verification.
func (i *DownloadIssuer) Issue(ctx context.Context, page model.ProtectedPage, purpose string) (string, error) {
	token, hashHex, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generate download token: %w", err)
	}
	if _, err := i.tokens.Create(ctx, page.ProfileID, page.ID, hashHex, purpose, time.Now().Add(i.ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// Redeem atomically consumes the token for the given scope and purpose.
// Unknown, expired, already-consumed, and out-of-scope tokens all collapse to
// ErrDenied; of any set of concurrent redemptions exactly one succeeds.
func (i *DownloadIssuer) Redeem(ctx context.Context, profileID, pageID uuid.UUID, token, purpose string) error {
	err := i.tokens.Consume(ctx, profileID, pageID, HashToken(token), purpose)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrDenied
		}
		return err
	}
	return nil
}
