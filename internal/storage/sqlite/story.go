package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"storyshare/internal/domain"
)

type StoryStore struct {
	db *sqlx.DB
}

func NewStoryStore(db *sqlx.DB) *StoryStore {
	return &StoryStore{db: db}
}

// Put inserts or replaces a story. Idempotent by primary key: writing
// the same id twice leaves one record with the latest field values.
func (s *StoryStore) Put(ctx context.Context, story *domain.Story) error {
	query := `
		INSERT INTO stories (id, name, description, photo_url, created_at, lat, lon)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			photo_url = excluded.photo_url,
			created_at = excluded.created_at,
			lat = excluded.lat,
			lon = excluded.lon`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		story.ID,
		story.Name,
		story.Description,
		story.PhotoURL,
		story.CreatedAt.UTC(),
		story.Lat,
		story.Lon,
	)
	if err != nil {
		return &domain.StorageError{Op: "put story", Err: err}
	}
	return nil
}

// PutAll upserts every story. Callers wanting all-or-nothing wrap the
// call in a transaction.
func (s *StoryStore) PutAll(ctx context.Context, stories []domain.Story) error {
	for i := range stories {
		if err := s.Put(ctx, &stories[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetAll returns every cached story in creation-time order.
func (s *StoryStore) GetAll(ctx context.Context) ([]domain.Story, error) {
	query := `
		SELECT id, name, description, photo_url, created_at, lat, lon
		FROM stories
		ORDER BY created_at`

	var stories []domain.Story
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &stories, query); err != nil {
		return nil, &domain.StorageError{Op: "list stories", Err: err}
	}
	return stories, nil
}

// GetByID returns the story with the given id, or nil when absent.
func (s *StoryStore) GetByID(ctx context.Context, id string) (*domain.Story, error) {
	query := `
		SELECT id, name, description, photo_url, created_at, lat, lon
		FROM stories
		WHERE id = ?`

	var story domain.Story
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &story, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get story", Err: err}
	}
	return &story, nil
}
