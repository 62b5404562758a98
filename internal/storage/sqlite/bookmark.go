package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"storyshare/internal/domain"
)

type BookmarkStore struct {
	db *sqlx.DB
}

func NewBookmarkStore(db *sqlx.DB) *BookmarkStore {
	return &BookmarkStore{db: db}
}

type bookmarkRow struct {
	ID           string    `db:"id"`
	StoryID      string    `db:"story_id"`
	StoryJSON    []byte    `db:"story_json"`
	BookmarkedAt time.Time `db:"bookmarked_at"`
}

func (r *bookmarkRow) toDomain() (domain.Bookmark, error) {
	b := domain.Bookmark{
		ID:           r.ID,
		StoryID:      r.StoryID,
		BookmarkedAt: r.BookmarkedAt,
	}
	if err := json.Unmarshal(r.StoryJSON, &b.Story); err != nil {
		return b, fmt.Errorf("decode story snapshot: %w", err)
	}
	return b, nil
}

// Put inserts a bookmark. The unique index on story_id backstops the
// caller's existence pre-check.
func (s *BookmarkStore) Put(ctx context.Context, b *domain.Bookmark) error {
	snapshot, err := json.Marshal(b.Story)
	if err != nil {
		return &domain.StorageError{Op: "put bookmark", Err: err}
	}

	query := `
		INSERT INTO bookmarks (id, story_id, story_json, bookmarked_at)
		VALUES (?, ?, ?, ?)`

	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		b.ID, b.StoryID, snapshot, b.BookmarkedAt.UTC(),
	); err != nil {
		return &domain.StorageError{Op: "put bookmark", Err: err}
	}
	return nil
}

// GetAll returns bookmarks ordered by bookmark time.
func (s *BookmarkStore) GetAll(ctx context.Context) ([]domain.Bookmark, error) {
	query := `
		SELECT id, story_id, story_json, bookmarked_at
		FROM bookmarks
		ORDER BY bookmarked_at`

	var rows []bookmarkRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, &domain.StorageError{Op: "list bookmarks", Err: err}
	}

	bookmarks := make([]domain.Bookmark, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toDomain()
		if err != nil {
			return nil, &domain.StorageError{Op: "list bookmarks", Err: err}
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, nil
}

// GetByStoryID returns all bookmarks for a story id via the secondary
// index. The unique constraint means at most one in practice.
func (s *BookmarkStore) GetByStoryID(ctx context.Context, storyID string) ([]domain.Bookmark, error) {
	query := `
		SELECT id, story_id, story_json, bookmarked_at
		FROM bookmarks
		WHERE story_id = ?`

	var rows []bookmarkRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, storyID); err != nil {
		return nil, &domain.StorageError{Op: "get bookmark", Err: err}
	}

	bookmarks := make([]domain.Bookmark, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toDomain()
		if err != nil {
			return nil, &domain.StorageError{Op: "get bookmark", Err: err}
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, nil
}

func (s *BookmarkStore) Delete(ctx context.Context, id string) error {
	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM bookmarks WHERE id = ?", id,
	); err != nil {
		return &domain.StorageError{Op: "delete bookmark", Err: err}
	}
	return nil
}

// DeleteOlderThan removes bookmarks created before cutoff and reports
// how many were swept.
func (s *BookmarkStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM bookmarks WHERE bookmarked_at < ?", cutoff.UTC(),
	)
	if err != nil {
		return 0, &domain.StorageError{Op: "sweep bookmarks", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.StorageError{Op: "sweep bookmarks", Err: err}
	}
	return n, nil
}
