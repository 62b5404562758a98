package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"storyshare/internal/domain"
)

type StoryAPI interface {
	ListStories(ctx context.Context, p domain.ListParams) ([]domain.Story, error)
	ListStoriesGuest(ctx context.Context, p domain.ListParams) ([]domain.Story, error)
	AddStory(ctx context.Context, in domain.NewStory) error
	AddStoryGuest(ctx context.Context, in domain.NewStory) error
}

type StoryStore interface {
	PutAll(ctx context.Context, stories []domain.Story) error
	GetAll(ctx context.Context) ([]domain.Story, error)
}

type BookmarkStore interface {
	Put(ctx context.Context, b *domain.Bookmark) error
	GetAll(ctx context.Context) ([]domain.Bookmark, error)
	GetByStoryID(ctx context.Context, storyID string) ([]domain.Bookmark, error)
	Delete(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type LikeStore interface {
	Put(ctx context.Context, like *domain.Like) error
	GetByStoryID(ctx context.Context, storyID string) ([]domain.Like, error)
	GetAll(ctx context.Context) ([]domain.Like, error)
	DeleteByStoryID(ctx context.Context, storyID string) (int64, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Connectivity interface {
	Online() bool
}

type TokenProvider interface {
	Token() string
}
