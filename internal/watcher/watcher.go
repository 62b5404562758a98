package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storyshare/internal/domain"
)

// StoryLister fetches the newest page directly from the network. The
// poller deliberately bypasses the offline fallback: a stale poll
// result is useless for change detection.
type StoryLister interface {
	ListStories(ctx context.Context, p domain.ListParams) ([]domain.Story, error)
}

// PermissionChecker gates ticks on the notification capability. A
// denied capability skips the tick without a network call.
type PermissionChecker interface {
	Granted() bool
}

// Notifier consumes change events. Delivery is at-most-once per
// observed change; the very first observation only sets the baseline.
type Notifier interface {
	Notify(ctx context.Context, event domain.ChangeEvent)
}

// Config tunes the watcher.
type Config struct {
	Interval      time.Duration
	PreviewLength int
}

// Watcher polls the newest remote story and emits a change event when
// its id moves. It owns its timer handle: starting it again cancels
// the previous run first, so at most one poller is ever active.
type Watcher struct {
	lister   StoryLister
	perms    PermissionChecker
	notifier Notifier
	logger   *slog.Logger

	interval   time.Duration
	previewLen int

	mu          sync.Mutex
	cancel      context.CancelFunc
	lastSeenID  string
	hasBaseline bool
}

func New(lister StoryLister, perms PermissionChecker, notifier Notifier, cfg Config, logger *slog.Logger) *Watcher {
	return &Watcher{
		lister:     lister,
		perms:      perms,
		notifier:   notifier,
		logger:     logger.With("component", "watcher"),
		interval:   cfg.Interval,
		previewLen: cfg.PreviewLength,
	}
}

// Start launches the polling loop. Any previously started loop is
// cancelled first.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	go w.run(runCtx)
}

// Stop cancels the active polling loop, if any.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *Watcher) run(ctx context.Context) {
	w.logger.Info("watcher started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick performs one poll. Failures are swallowed with no backoff; the
// next tick simply tries again.
func (w *Watcher) tick(ctx context.Context) {
	if !w.perms.Granted() {
		w.logger.Debug("notification permission not granted, skipping poll")
		return
	}

	stories, err := w.lister.ListStories(ctx, domain.ListParams{Page: 1, Size: 1})
	if err != nil {
		w.logger.Debug("poll failed", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if len(stories) == 0 {
		// Feed became empty; a future story counts as new again only
		// after a fresh baseline.
		if w.hasBaseline {
			w.lastSeenID = ""
			w.hasBaseline = false
		}
		return
	}

	latest := stories[0]
	if w.hasBaseline && latest.ID == w.lastSeenID {
		return
	}

	if w.hasBaseline {
		event := domain.ChangeEvent{
			StoryID: latest.ID,
			Name:    latest.Name,
			Preview: truncate(latest.Description, w.previewLen),
			URL:     "/#/detail/" + latest.ID,
		}
		w.logger.Info("new story detected", "story_id", latest.ID)
		w.notifier.Notify(ctx, event)
	}

	w.lastSeenID = latest.ID
	w.hasBaseline = true
}

// truncate caps the preview at max runes. The ellipsis is always
// appended, even to short descriptions.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes) + "..."
}
