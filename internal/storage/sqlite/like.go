package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storyshare/internal/domain"
)

type LikeStore struct {
	db *sqlx.DB
}

func NewLikeStore(db *sqlx.DB) *LikeStore {
	return &LikeStore{db: db}
}

// Put inserts a like row. The unique index on story_id rejects a
// second active like for the same story.
func (s *LikeStore) Put(ctx context.Context, like *domain.Like) error {
	query := `INSERT INTO likes (id, story_id, liked_at) VALUES (?, ?, ?)`

	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		like.ID, like.StoryID, like.LikedAt.UTC(),
	); err != nil {
		return &domain.StorageError{Op: "put like", Err: err}
	}
	return nil
}

// GetByStoryID returns all like rows for a story id.
func (s *LikeStore) GetByStoryID(ctx context.Context, storyID string) ([]domain.Like, error) {
	query := `SELECT id, story_id, liked_at FROM likes WHERE story_id = ?`

	var likes []domain.Like
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &likes, query, storyID); err != nil {
		return nil, &domain.StorageError{Op: "get likes", Err: err}
	}
	return likes, nil
}

// GetAll returns likes in like-time order.
func (s *LikeStore) GetAll(ctx context.Context) ([]domain.Like, error) {
	query := `SELECT id, story_id, liked_at FROM likes ORDER BY liked_at`

	var likes []domain.Like
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &likes, query); err != nil {
		return nil, &domain.StorageError{Op: "list likes", Err: err}
	}
	return likes, nil
}

// DeleteByStoryID removes every like row matching the story id, so no
// historical rows linger after an unlike.
func (s *LikeStore) DeleteByStoryID(ctx context.Context, storyID string) (int64, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM likes WHERE story_id = ?", storyID,
	)
	if err != nil {
		return 0, &domain.StorageError{Op: "delete likes", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.StorageError{Op: "delete likes", Err: err}
	}
	return n, nil
}
