package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func setupDownloadMock(t *testing.T) (DownloadTokenRepo, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	return NewDownloadTokenRepo(db), mock, func() { db.Close() }
}

func TestDownloadRepo_Create(t *testing.T) {
	repo, mock, cleanup := setupDownloadMock(t)
	defer cleanup()

	profileID := uuid.New()
	pageID := uuid.New()
	tokenID := uuid.New()
	expiresAt := time.Now().Add(10 * time.Minute)

	mock.ExpectQuery("INSERT INTO download_tokens").
		WithArgs(profileID, pageID, "hash", "vcard", expiresAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(tokenID.String()))

	id, err := repo.Create(context.Background(), profileID, pageID, "hash", "vcard", expiresAt)
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

func TestDownloadRepo_Consume(t *testing.T) {
	repo, mock, cleanup := setupDownloadMock(t)
	defer cleanup()

	profileID := uuid.New()
	pageID := uuid.New()
	mock.ExpectExec("UPDATE download_tokens SET consumed_at").
		WithArgs("hash", profileID, pageID, "vcard").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Consume(context.Background(), profileID, pageID, "hash", "vcard"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDownloadRepo_Consume_alreadyConsumed(t *testing.T) {
	repo, mock, cleanup := setupDownloadMock(t)
	defer cleanup()

	// The conditional update matches no row for consumed, expired, or
	// out-of-scope tokens alike
	profileID := uuid.New()
	pageID := uuid.New()
	mock.ExpectExec("UPDATE download_tokens SET consumed_at").
		WithArgs("hash", profileID, pageID, "vcard").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Consume(context.Background(), profileID, pageID, "hash", "vcard")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
