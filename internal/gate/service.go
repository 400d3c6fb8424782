package gate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkpage/server/internal/content"
	"github.com/linkpage/server/internal/model"
	"github.com/linkpage/server/internal/repo"
)

// maxPresentedTokens caps how many trust credentials a single remembered-pages
// check will evaluate.
const maxPresentedTokens = 20

// VerifyOutcome is the externally visible result class of a PIN submission
type VerifyOutcome string

const (
	OutcomeSuccess  VerifyOutcome = "success"
	OutcomeLocked   VerifyOutcome = "locked"
	OutcomeWrongPin VerifyOutcome = "wrong_pin"
	OutcomeNotFound VerifyOutcome = "not_found"
)

// VerifyResult is the response of a PIN verification. DownloadToken and
// UnlockToken are set only on success. Content may be nil even on success if
// the content collaborator failed; the unlock itself still stands.
type VerifyResult struct {
	Outcome           VerifyOutcome
	PageID            uuid.UUID
	RemainingAttempts int
	DownloadToken     string
	UnlockToken       string
	Content           *model.PageContent
}

// AccessService composes verification, throttling, device trust, and download
// tokens into the externally visible operations. It is the only layer that
// translates internal failures into response shapes, and it never surfaces
// more than {wrong PIN + remaining, locked, not found} on the attempt path.
type AccessService struct {
	pages     repo.PageRepo
	profiles  repo.ProfileRepo
	engine    *LockoutEngine
	trust     *TrustIssuer
	downloads *DownloadIssuer
	proofs    *ProofService
	content   content.Fetcher
	logger    *zap.Logger
}

// NewAccessService creates the access orchestrator
func NewAccessService(
	pages repo.PageRepo,
	profiles repo.ProfileRepo,
	engine *LockoutEngine,
	trust *TrustIssuer,
	downloads *DownloadIssuer,
	proofs *ProofService,
	fetcher content.Fetcher,
	logger *zap.Logger,
) *AccessService {
	return &AccessService{
		pages:     pages,
		profiles:  profiles,
		engine:    engine,
		trust:     trust,
		downloads: downloads,
		proofs:    proofs,
		content:   fetcher,
		logger:    logger,
	}
}

// loadPage resolves the attempt target. A page id, when given, must belong to
// the named profile; otherwise the profile's single active page is used. Any
// load failure collapses to ErrNotFound (fail closed, no existence leak).
func (s *AccessService) loadPage(ctx context.Context, profileID uuid.UUID, pageID *uuid.UUID) (model.ProtectedPage, error) {
	var page model.ProtectedPage
	var err error
	if pageID != nil {
		page, err = s.pages.GetActiveByID(ctx, *pageID)
	} else {
		page, err = s.pages.GetActiveByProfile(ctx, profileID)
	}
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("page load failed", zap.Error(err))
		}
		return model.ProtectedPage{}, ErrNotFound
	}
	if page.ProfileID != profileID {
		return model.ProtectedPage{}, ErrNotFound
	}
	return page, nil
}

// VerifyPin evaluates one PIN submission against a profile's protected page.
// On success it resets the failure counters, mints a single-use download token
// and a short-lived unlock proof, and fetches the page's display content.
func (s *AccessService) VerifyPin(ctx context.Context, profileID uuid.UUID, pageID *uuid.UUID, pin string) (VerifyResult, error) {
	if err := ValidatePin(pin); err != nil {
		// Malformed PINs short-circuit with the same shape as an unknown page
		return VerifyResult{Outcome: OutcomeNotFound}, nil
	}

	page, err := s.loadPage(ctx, profileID, pageID)
	if err != nil {
		return VerifyResult{Outcome: OutcomeNotFound}, nil
	}

	attempt, err := s.engine.Attempt(ctx, page, pin)
	if err != nil {
		// Persistence trouble mid-attempt fails closed
		s.logger.Error("attempt evaluation failed", zap.String("page_id", page.ID.String()), zap.Error(err))
		return VerifyResult{Outcome: OutcomeNotFound}, nil
	}

	switch attempt.Outcome {
	case AttemptLocked:
		return VerifyResult{Outcome: OutcomeLocked}, nil
	case AttemptNoMatch:
		return VerifyResult{Outcome: OutcomeWrongPin, RemainingAttempts: attempt.Remaining}, nil
	}

	downloadToken, err := s.downloads.Issue(ctx, page, PurposeVCard)
	if err != nil {
		return VerifyResult{}, err
	}
	unlockToken, err := s.proofs.Sign(page.ProfileID, page.ID)
	if err != nil {
		return VerifyResult{}, err
	}

	result := VerifyResult{
		Outcome:       OutcomeSuccess,
		PageID:        page.ID,
		DownloadToken: downloadToken,
		UnlockToken:   unlockToken,
	}

	// Content failure is a content-layer problem; the unlock already succeeded
	pageContent, err := s.content.FetchPage(ctx, page.ID)
	if err != nil {
		s.logger.Warn("content fetch failed after unlock",
			zap.String("page_id", page.ID.String()), zap.Error(err))
	} else {
		result.Content = &pageContent
	}

	return result, nil
}

// CheckRemembered returns the page ids, deduplicated, for which the presented
// trust credentials are currently valid for this profile.
func (s *AccessService) CheckRemembered(ctx context.Context, profileID uuid.UUID, tokens []string) []uuid.UUID {
	if len(tokens) > maxPresentedTokens {
		tokens = tokens[:maxPresentedTokens]
	}
	seen := make(map[uuid.UUID]bool)
	var pages []uuid.UUID
	for _, token := range tokens {
		t, ok := s.trust.Validate(ctx, token)
		if !ok || t.ProfileID != profileID || seen[t.PageID] {
			continue
		}
		seen[t.PageID] = true
		pages = append(pages, t.PageID)
	}
	return pages
}

// RememberDevice issues a device trust token for a page the client just
// unlocked, proven by the unlock token from the verification response.
func (s *AccessService) RememberDevice(ctx context.Context, profileID, pageID uuid.UUID, unlockToken string) (string, time.Time, error) {
	proofProfile, proofPage, err := s.proofs.Verify(unlockToken)
	if err != nil {
		return "", time.Time{}, err
	}
	if proofProfile != profileID || proofPage != pageID {
		return "", time.Time{}, ErrUnlockProofInvalid
	}

	page, err := s.loadPage(ctx, profileID, &pageID)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.trust.Issue(ctx, page)
}

// ForgetDevice revokes the presented trust credential. Always succeeds:
// revoking an unknown or already-revoked token is a no-op.
func (s *AccessService) ForgetDevice(ctx context.Context, token string) error {
	return s.trust.Revoke(ctx, token)
}

// RedeemDownloadToken consumes a download token and returns the profile's
// vCard. Every failure mode is ErrDenied.
func (s *AccessService) RedeemDownloadToken(ctx context.Context, profileID, pageID uuid.UUID, token string) ([]byte, error) {
	if err := s.downloads.Redeem(ctx, profileID, pageID, token, PurposeVCard); err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		// The token was already consumed; losing the profile row now is a
		// content-layer failure, not a token one.
		s.logger.Error("profile fetch failed after redemption",
			zap.String("profile_id", profileID.String()), zap.Error(err))
		return nil, err
	}
	return content.RenderVCard(profile), nil
}
