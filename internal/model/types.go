package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Profile represents a page owner in the system
type Profile struct {
	ID          uuid.UUID
	Handle      string
	DisplayName string
	Email       *string
	Phone       *string
	Website     *string
	CreatedAt   time.Time
}

// VisibilityMode controls how the content layer surfaces a protected page
type VisibilityMode string

const (
	// VisibilityHidden pages are reachable only via a subtle on-page affordance
	VisibilityHidden VisibilityMode = "hidden"
	// VisibilityVisible pages are advertised with a labeled button
	VisibilityVisible VisibilityMode = "visible"
)

// ProtectedPage is a PIN-gated secondary page owned by a profile
type ProtectedPage struct {
	ID             uuid.UUID
	ProfileID      uuid.UUID
	PinHash        string
	VisibilityMode VisibilityMode
	IsActive       bool
	AllowRemember  bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeviceTrustToken lets a previously verified device skip PIN entry on return
// visits. The client holds the random token string; only its hash is stored.
type DeviceTrustToken struct {
	ID        uuid.UUID
	ProfileID uuid.UUID
	PageID    uuid.UUID
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// DownloadToken authorizes exactly one protected-resource fetch after an unlock
type DownloadToken struct {
	ID         uuid.UUID
	ProfileID  uuid.UUID
	PageID     uuid.UUID
	TokenHash  string
	Purpose    string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// PageContent is the display payload for an unlocked page. It is owned by the
// content subsystem and fetched here only after a successful verification.
type PageContent struct {
	PageID uuid.UUID       `json:"page_id"`
	Title  string          `json:"title"`
	Theme  string          `json:"theme"`
	Blocks json.RawMessage `json:"blocks"`
}
