package service

import (
	"context"
	"log/slog"

	"storyshare/internal/domain"
)

// FeedService is the fallback-aware read path. Reads prefer the
// network and write successful results through to the local store;
// any network failure degrades to the cached replica with the
// offline flag raised.
type FeedService struct {
	api          StoryAPI
	stories      StoryStore
	txManager    TransactionManager
	connectivity Connectivity
	tokens       TokenProvider
	logger       *slog.Logger
}

func NewFeedService(
	api StoryAPI,
	stories StoryStore,
	txManager TransactionManager,
	connectivity Connectivity,
	tokens TokenProvider,
	logger *slog.Logger,
) *FeedService {
	return &FeedService{
		api:          api,
		stories:      stories,
		txManager:    txManager,
		connectivity: connectivity,
		tokens:       tokens,
		logger:       logger.With("component", "feed"),
	}
}

// FetchList returns one page of stories. When connectivity is known
// to be down the network is skipped entirely; on a network failure
// the error is swallowed here and the cached replica is served
// instead, with IsOffline signalling degraded data.
func (s *FeedService) FetchList(ctx context.Context, p domain.ListParams) (*domain.ListResult, error) {
	if !s.connectivity.Online() {
		return s.fromStore(ctx), nil
	}

	stories, err := s.list(ctx, p)
	if err != nil {
		s.logger.Warn("network fetch failed, serving cached stories", "error", err)
		return s.fromStore(ctx), nil
	}

	s.writeThrough(ctx, stories)

	return &domain.ListResult{Stories: stories, IsOffline: false}, nil
}

func (s *FeedService) list(ctx context.Context, p domain.ListParams) ([]domain.Story, error) {
	if s.tokens.Token() != "" {
		return s.api.ListStories(ctx, p)
	}
	return s.api.ListStoriesGuest(ctx, p)
}

// writeThrough is the sole mechanism keeping the local replica warm
// for later offline reads. A failed fill never fails the read.
func (s *FeedService) writeThrough(ctx context.Context, stories []domain.Story) {
	if len(stories) == 0 {
		return
	}
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.stories.PutAll(txCtx, stories)
	})
	if err != nil {
		s.logger.Warn("write-through cache fill failed", "error", err, "count", len(stories))
	}
}

// fromStore reads the replica. A storage failure here degrades to an
// empty feed rather than an error: offline with no cache must still
// render.
func (s *FeedService) fromStore(ctx context.Context) *domain.ListResult {
	stories, err := s.stories.GetAll(ctx)
	if err != nil {
		s.logger.Error("cached read failed, treating as empty", "error", err)
		stories = nil
	}
	if stories == nil {
		stories = []domain.Story{}
	}
	return &domain.ListResult{Stories: stories, IsOffline: true}
}

// Submit sends a new story to the server. Writes always go to the
// network; without a credential the guest endpoint takes the story.
func (s *FeedService) Submit(ctx context.Context, in domain.NewStory) error {
	if s.tokens.Token() != "" {
		return s.api.AddStory(ctx, in)
	}
	return s.api.AddStoryGuest(ctx, in)
}
