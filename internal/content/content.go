// Package content is the boundary to the page-content subsystem. The access
// core only needs two things from it: the display payload of an unlocked page
// and a vCard rendering of the owning profile.
package content

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/linkpage/server/internal/model"
	"github.com/linkpage/server/internal/repo"
)

// Fetcher returns the display payload for an unlocked page
type Fetcher interface {
	FetchPage(ctx context.Context, pageID uuid.UUID) (model.PageContent, error)
}

type postgresFetcher struct {
	db *sql.DB
}

// NewPostgresFetcher creates a Fetcher over the page_contents table
func NewPostgresFetcher(db *sql.DB) Fetcher {
	return &postgresFetcher{db: db}
}

// FetchPage returns the stored display payload for the page
func (f *postgresFetcher) FetchPage(ctx context.Context, pageID uuid.UUID) (model.PageContent, error) {
	var c model.PageContent
	var pageIDStr string
	err := f.db.QueryRowContext(ctx, `
		SELECT page_id, title, theme, blocks
		FROM page_contents
		WHERE page_id = $1
	`, pageID).Scan(&pageIDStr, &c.Title, &c.Theme, &c.Blocks)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.PageContent{}, repo.ErrNotFound
		}
		return model.PageContent{}, fmt.Errorf("query page content: %w", err)
	}
	c.PageID, err = uuid.Parse(pageIDStr)
	if err != nil {
		return model.PageContent{}, fmt.Errorf("parse page ID: %w", err)
	}
	return c, nil
}
