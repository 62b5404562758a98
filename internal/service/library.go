package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storyshare/internal/domain"
)

// LibraryService owns the user's local-only records: bookmarks and
// likes. Nothing here touches the network; synchronization never
// edits these stores.
type LibraryService struct {
	bookmarks BookmarkStore
	likes     LikeStore
	txManager TransactionManager
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewLibraryService(
	bookmarks BookmarkStore,
	likes LikeStore,
	txManager TransactionManager,
	ttl time.Duration,
	logger *slog.Logger,
) *LibraryService {
	return &LibraryService{
		bookmarks: bookmarks,
		likes:     likes,
		txManager: txManager,
		ttl:       ttl,
		logger:    logger.With("component", "library"),
		now:       time.Now,
	}
}

// Bookmark snapshots the story into the bookmark store. Returns false
// without writing when the story is already bookmarked.
func (s *LibraryService) Bookmark(ctx context.Context, story domain.Story) (bool, error) {
	var added bool
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.bookmarks.GetByStoryID(txCtx, story.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		added = true
		return s.bookmarks.Put(txCtx, &domain.Bookmark{
			ID:           "bookmark_" + story.ID,
			StoryID:      story.ID,
			Story:        story,
			BookmarkedAt: s.now(),
		})
	})
	if err != nil {
		return false, fmt.Errorf("bookmark story: %w", err)
	}
	return added, nil
}

// RemoveBookmark deletes every bookmark row for the story id. Returns
// false when there was nothing to remove.
func (s *LibraryService) RemoveBookmark(ctx context.Context, storyID string) (bool, error) {
	var removed bool
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.bookmarks.GetByStoryID(txCtx, storyID)
		if err != nil {
			return err
		}
		for i := range existing {
			if err := s.bookmarks.Delete(txCtx, existing[i].ID); err != nil {
				return err
			}
			removed = true
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("remove bookmark: %w", err)
	}
	return removed, nil
}

// Bookmarks lists saved stories in bookmark order, sweeping expired
// entries opportunistically first.
func (s *LibraryService) Bookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	if _, err := s.CleanOldBookmarks(ctx); err != nil {
		s.logger.Warn("bookmark sweep failed", "error", err)
	}
	return s.bookmarks.GetAll(ctx)
}

// CleanOldBookmarks removes bookmarks older than the configured TTL
// and reports how many were swept.
func (s *LibraryService) CleanOldBookmarks(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl)
	n, err := s.bookmarks.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("swept expired bookmarks", "count", n)
	}
	return n, nil
}

// Like records a like for the story. A second like of the same story
// is rejected, not merged.
func (s *LibraryService) Like(ctx context.Context, storyID string) (bool, error) {
	var added bool
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.likes.GetByStoryID(txCtx, storyID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		added = true
		return s.likes.Put(txCtx, &domain.Like{
			ID:      fmt.Sprintf("like_%s_%s", storyID, uuid.NewString()),
			StoryID: storyID,
			LikedAt: s.now(),
		})
	})
	if err != nil {
		return false, fmt.Errorf("like story: %w", err)
	}
	return added, nil
}

// Likes lists every recorded like in insertion order.
func (s *LibraryService) Likes(ctx context.Context) ([]domain.Like, error) {
	return s.likes.GetAll(ctx)
}

// Unlike removes every like row for the story id so no historical
// rows coexist. Returns false when the story was not liked.
func (s *LibraryService) Unlike(ctx context.Context, storyID string) (bool, error) {
	var removed int64
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		n, err := s.likes.DeleteByStoryID(txCtx, storyID)
		removed = n
		return err
	})
	if err != nil {
		return false, fmt.Errorf("unlike story: %w", err)
	}
	return removed > 0, nil
}

// CheckStatus reports whether the story is bookmarked and liked.
func (s *LibraryService) CheckStatus(ctx context.Context, storyID string) (domain.StoryStatus, error) {
	var status domain.StoryStatus

	bookmarks, err := s.bookmarks.GetByStoryID(ctx, storyID)
	if err != nil {
		return status, fmt.Errorf("check bookmark status: %w", err)
	}
	status.IsBookmarked = len(bookmarks) > 0

	likes, err := s.likes.GetByStoryID(ctx, storyID)
	if err != nil {
		return status, fmt.Errorf("check like status: %w", err)
	}
	status.IsLiked = len(likes) > 0

	return status, nil
}
