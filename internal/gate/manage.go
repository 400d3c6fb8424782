package gate

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkpage/server/internal/model"
	"github.com/linkpage/server/internal/repo"
)

// PageManager exposes the owner-side lifecycle of protected pages. Owner
// authentication sits upstream; callers are trusted to act for the profile
// they name.
type PageManager struct {
	pages  repo.PageRepo
	logger *zap.Logger
}

// NewPageManager creates a page manager
func NewPageManager(pages repo.PageRepo, logger *zap.Logger) *PageManager {
	return &PageManager{pages: pages, logger: logger}
}

// CreatePage sets up a protected page. A PIN is required at creation and is
// stored only as a bcrypt hash.
func (m *PageManager) CreatePage(ctx context.Context, profileID uuid.UUID, pin string, visibility model.VisibilityMode, allowRemember bool) (model.ProtectedPage, error) {
	if err := ValidatePin(pin); err != nil {
		return model.ProtectedPage{}, err
	}
	if visibility != model.VisibilityHidden && visibility != model.VisibilityVisible {
		visibility = model.VisibilityHidden
	}
	pinHash, err := HashPin(pin)
	if err != nil {
		return model.ProtectedPage{}, err
	}
	page, err := m.pages.Create(ctx, profileID, pinHash, visibility, allowRemember)
	if err != nil {
		return model.ProtectedPage{}, err
	}
	m.logger.Info("protected page created",
		zap.String("page_id", page.ID.String()),
		zap.String("profile_id", profileID.String()))
	return page, nil
}

// ChangePin replaces the page's PIN and resets its lockout counters
func (m *PageManager) ChangePin(ctx context.Context, pageID uuid.UUID, pin string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}
	pinHash, err := HashPin(pin)
	if err != nil {
		return err
	}
	return m.mapNotFound(m.pages.UpdatePinHash(ctx, pageID, pinHash))
}

// SetAllowRemember toggles whether the page may mint new device trust tokens.
// Existing tokens stay valid until they expire or are forgotten.
func (m *PageManager) SetAllowRemember(ctx context.Context, pageID uuid.UUID, allow bool) error {
	return m.mapNotFound(m.pages.SetAllowRemember(ctx, pageID, allow))
}

// SetVisibility switches the page between hidden and visible discovery modes
func (m *PageManager) SetVisibility(ctx context.Context, pageID uuid.UUID, mode model.VisibilityMode) error {
	if mode != model.VisibilityHidden && mode != model.VisibilityVisible {
		return ErrInvalidVisibility
	}
	return m.mapNotFound(m.pages.SetVisibility(ctx, pageID, mode))
}

// DeactivatePage soft-deletes the page; trust validation treats its tokens as
// absent from this point on.
func (m *PageManager) DeactivatePage(ctx context.Context, pageID uuid.UUID) error {
	return m.mapNotFound(m.pages.Deactivate(ctx, pageID))
}

// DeletePage hard-deletes the page and, via schema cascade, its tokens
func (m *PageManager) DeletePage(ctx context.Context, pageID uuid.UUID) error {
	return m.mapNotFound(m.pages.Delete(ctx, pageID))
}

func (m *PageManager) mapNotFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
