package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func setupTrustMock(t *testing.T) (TrustTokenRepo, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	return NewTrustTokenRepo(db), mock, func() { db.Close() }
}

func TestTrustRepo_Create(t *testing.T) {
	repo, mock, cleanup := setupTrustMock(t)
	defer cleanup()

	profileID := uuid.New()
	pageID := uuid.New()
	tokenID := uuid.New()
	expiresAt := time.Now().Add(30 * 24 * time.Hour)

	mock.ExpectQuery("INSERT INTO device_trust_tokens").
		WithArgs(profileID, pageID, "hash", expiresAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(tokenID.String()))

	id, err := repo.Create(context.Background(), profileID, pageID, "hash", expiresAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != tokenID {
		t.Errorf("got id %s, want %s", id, tokenID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTrustRepo_FindValidByHash(t *testing.T) {
	repo, mock, cleanup := setupTrustMock(t)
	defer cleanup()

	tokenID := uuid.New()
	profileID := uuid.New()
	pageID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM device_trust_tokens").
		WithArgs("hash").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "profile_id", "page_id", "token_hash", "issued_at", "expires_at", "revoked_at",
		}).AddRow(tokenID.String(), profileID.String(), pageID.String(), "hash", now, now.Add(time.Hour), nil))

	token, err := repo.FindValidByHash(context.Background(), "hash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.ProfileID != profileID || token.PageID != pageID {
		t.Errorf("got binding %s/%s, want %s/%s", token.ProfileID, token.PageID, profileID, pageID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTrustRepo_FindValidByHash_absent(t *testing.T) {
	repo, mock, cleanup := setupTrustMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM device_trust_tokens").
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindValidByHash(context.Background(), "unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTrustRepo_RevokeByHash_idempotent(t *testing.T) {
	repo, mock, cleanup := setupTrustMock(t)
	defer cleanup()

	// Zero affected rows (unknown or already revoked) is still success
	mock.ExpectExec("UPDATE device_trust_tokens SET revoked_at").
		WithArgs("unknown").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.RevokeByHash(context.Background(), "unknown"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
