package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/linkpage/server/internal/model"
)

// ProfileRepo defines the interface for profile repository operations
type ProfileRepo interface {
	Create(ctx context.Context, handle, displayName string, email, phone, website *string) (model.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error)
	GetByHandle(ctx context.Context, handle string) (model.Profile, error)
}

type profileRepo struct {
	db *sql.DB
}

// NewProfileRepo creates a new ProfileRepo instance
func NewProfileRepo(db *sql.DB) ProfileRepo {
	return &profileRepo{db: db}
}

const profileColumns = `id, handle, display_name, email, phone, website, created_at`

func scanProfile(row *sql.Row) (model.Profile, error) {
	var p model.Profile
	var idStr string
	err := row.Scan(
		&idStr,
		&p.Handle,
		&p.DisplayName,
		&p.Email,
		&p.Phone,
		&p.Website,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	p.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.Profile{}, fmt.Errorf("parse profile ID: %w", err)
	}
	return p, nil
}

// Create inserts a new profile
func (r *profileRepo) Create(ctx context.Context, handle, displayName string, email, phone, website *string) (model.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (handle, display_name, email, phone, website)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+profileColumns+`
	`, handle, displayName, email, phone, website)
	return scanProfile(row)
}

// GetByID retrieves a profile by ID
func (r *profileRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE id = $1
	`, id)
	return scanProfile(row)
}

// GetByHandle retrieves a profile by its public handle
func (r *profileRepo) GetByHandle(ctx context.Context, handle string) (model.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE handle = $1
	`, handle)
	return scanProfile(row)
}
