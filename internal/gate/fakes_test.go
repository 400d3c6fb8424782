package gate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkpage/server/internal/model"
	"github.com/linkpage/server/internal/repo"
)

// fakePageRepo is an in-memory PageRepo mirroring the conditional-update
// semantics of the Postgres implementation.
type fakePageRepo struct {
	mu    sync.Mutex
	pages map[uuid.UUID]*model.ProtectedPage
}

func newFakePageRepo() *fakePageRepo {
	return &fakePageRepo{pages: make(map[uuid.UUID]*model.ProtectedPage)}
}

func (f *fakePageRepo) put(p model.ProtectedPage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := p
	f.pages[p.ID] = &copied
}

func (f *fakePageRepo) get(id uuid.UUID) model.ProtectedPage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.pages[id]
}

func (f *fakePageRepo) Create(ctx context.Context, profileID uuid.UUID, pinHash string, visibility model.VisibilityMode, allowRemember bool) (model.ProtectedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := model.ProtectedPage{
		ID:             uuid.New(),
		ProfileID:      profileID,
		PinHash:        pinHash,
		VisibilityMode: visibility,
		IsActive:       true,
		AllowRemember:  allowRemember,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	f.pages[p.ID] = &p
	return p, nil
}

func (f *fakePageRepo) GetActiveByID(ctx context.Context, pageID uuid.UUID) (model.ProtectedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok || !p.IsActive {
		return model.ProtectedPage{}, repo.ErrNotFound
	}
	return *p, nil
}

func (f *fakePageRepo) GetActiveByProfile(ctx context.Context, profileID uuid.UUID) (model.ProtectedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pages {
		if p.ProfileID == profileID && p.IsActive {
			return *p, nil
		}
	}
	return model.ProtectedPage{}, repo.ErrNotFound
}

func (f *fakePageRepo) UpdatePinHash(ctx context.Context, pageID uuid.UUID, pinHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok || !p.IsActive {
		return repo.ErrNotFound
	}
	p.PinHash = pinHash
	p.FailedAttempts = 0
	p.LockedUntil = nil
	return nil
}

func (f *fakePageRepo) SetAllowRemember(ctx context.Context, pageID uuid.UUID, allow bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok || !p.IsActive {
		return repo.ErrNotFound
	}
	p.AllowRemember = allow
	return nil
}

func (f *fakePageRepo) SetVisibility(ctx context.Context, pageID uuid.UUID, mode model.VisibilityMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok || !p.IsActive {
		return repo.ErrNotFound
	}
	p.VisibilityMode = mode
	return nil
}

func (f *fakePageRepo) Deactivate(ctx context.Context, pageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok || !p.IsActive {
		return repo.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (f *fakePageRepo) Delete(ctx context.Context, pageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pages[pageID]; !ok {
		return repo.ErrNotFound
	}
	delete(f.pages, pageID)
	return nil
}

func (f *fakePageRepo) RecordFailure(ctx context.Context, pageID uuid.UUID, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	now := time.Now()
	if !ok || !p.IsActive || (p.LockedUntil != nil && p.LockedUntil.After(now)) {
		return 0, nil, repo.ErrNotFound
	}
	p.FailedAttempts++
	if p.FailedAttempts >= threshold {
		until := now.Add(lockFor)
		p.LockedUntil = &until
	}
	var lockedUntil *time.Time
	if p.LockedUntil != nil {
		u := *p.LockedUntil
		lockedUntil = &u
	}
	return p.FailedAttempts, lockedUntil, nil
}

func (f *fakePageRepo) ClearExpiredLock(ctx context.Context, pageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok {
		return nil
	}
	if p.LockedUntil != nil && !p.LockedUntil.After(time.Now()) {
		p.FailedAttempts = 0
		p.LockedUntil = nil
	}
	return nil
}

func (f *fakePageRepo) ResetLockout(ctx context.Context, pageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok {
		return nil
	}
	p.FailedAttempts = 0
	p.LockedUntil = nil
	return nil
}

// fakeTrustRepo is an in-memory TrustTokenRepo keyed by token hash
type fakeTrustRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.DeviceTrustToken
	pages  *fakePageRepo
}

func newFakeTrustRepo(pages *fakePageRepo) *fakeTrustRepo {
	return &fakeTrustRepo{tokens: make(map[string]*model.DeviceTrustToken), pages: pages}
}

func (f *fakeTrustRepo) Create(ctx context.Context, profileID, pageID uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.DeviceTrustToken{
		ID:        uuid.New(),
		ProfileID: profileID,
		PageID:    pageID,
		TokenHash: tokenHash,
		IssuedAt:  time.Now(),
		ExpiresAt: expiresAt,
	}
	f.tokens[tokenHash] = &t
	return t.ID, nil
}

func (f *fakeTrustRepo) FindValidByHash(ctx context.Context, tokenHash string) (model.DeviceTrustToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || !t.ExpiresAt.After(time.Now()) {
		return model.DeviceTrustToken{}, repo.ErrNotFound
	}
	if f.pages != nil {
		if _, err := f.pages.GetActiveByID(ctx, t.PageID); err != nil {
			return model.DeviceTrustToken{}, repo.ErrNotFound
		}
	}
	return *t, nil
}

func (f *fakeTrustRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (f *fakeTrustRepo) DeleteExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, t := range f.tokens {
		if !t.ExpiresAt.After(time.Now()) {
			delete(f.tokens, hash)
			n++
		}
	}
	return n, nil
}

// expire backdates a token's expiry for expiry tests
func (f *fakeTrustRepo) expire(tokenHash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[tokenHash]; ok {
		t.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

// fakeDownloadRepo is an in-memory DownloadTokenRepo keyed by token hash
type fakeDownloadRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.DownloadToken
}

func newFakeDownloadRepo() *fakeDownloadRepo {
	return &fakeDownloadRepo{tokens: make(map[string]*model.DownloadToken)}
}

func (f *fakeDownloadRepo) Create(ctx context.Context, profileID, pageID uuid.UUID, tokenHash, purpose string, expiresAt time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.DownloadToken{
		ID:        uuid.New(),
		ProfileID: profileID,
		PageID:    pageID,
		TokenHash: tokenHash,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	f.tokens[tokenHash] = &t
	return t.ID, nil
}

func (f *fakeDownloadRepo) Consume(ctx context.Context, profileID, pageID uuid.UUID, tokenHash, purpose string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok || t.ProfileID != profileID || t.PageID != pageID || t.Purpose != purpose ||
		t.ConsumedAt != nil || !t.ExpiresAt.After(time.Now()) {
		return repo.ErrNotFound
	}
	now := time.Now()
	t.ConsumedAt = &now
	return nil
}

func (f *fakeDownloadRepo) DeleteExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, t := range f.tokens {
		if !t.ExpiresAt.After(time.Now()) || t.ConsumedAt != nil {
			delete(f.tokens, hash)
			n++
		}
	}
	return n, nil
}

// expire backdates a token's expiry for expiry tests
func (f *fakeDownloadRepo) expire(tokenHash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[tokenHash]; ok {
		t.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

// fakeProfileRepo is an in-memory ProfileRepo
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]model.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[uuid.UUID]model.Profile)}
}

func (f *fakeProfileRepo) Create(ctx context.Context, handle, displayName string, email, phone, website *string) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := model.Profile{
		ID:          uuid.New(),
		Handle:      handle,
		DisplayName: displayName,
		Email:       email,
		Phone:       phone,
		Website:     website,
		CreatedAt:   time.Now(),
	}
	f.profiles[p.ID] = p
	return p, nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return model.Profile{}, repo.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) GetByHandle(ctx context.Context, handle string) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Handle == handle {
			return p, nil
		}
	}
	return model.Profile{}, repo.ErrNotFound
}

// fakeFetcher returns a canned content payload or a configured error
type fakeFetcher struct {
	content model.PageContent
	err     error
}

func (f *fakeFetcher) FetchPage(ctx context.Context, pageID uuid.UUID) (model.PageContent, error) {
	if f.err != nil {
		return model.PageContent{}, f.err
	}
	c := f.content
	c.PageID = pageID
	return c, nil
}
