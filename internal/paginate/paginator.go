package paginate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"storyshare/internal/domain"
)

// Fetcher loads one page of stories. The production implementation is
// the fallback-aware feed service.
type Fetcher interface {
	FetchPage(ctx context.Context, page, size int) (*domain.ListResult, error)
}

// Connectivity gates retries: there is no point retrying a page while
// the device is known to be offline.
type Connectivity interface {
	Online() bool
}

// Config tunes one paginator.
type Config struct {
	PageSize   int
	MaxRetries int
	BaseDelay  time.Duration
}

// Snapshot is the paginator's externally visible state after an
// operation.
type Snapshot struct {
	Items     []domain.Story
	Page      int
	HasMore   bool
	IsOffline bool
}

// Paginator accumulates successive pages for one list view. At most
// one fetch is in flight at a time; a load requested while another is
// running is a no-op returning the current snapshot.
type Paginator struct {
	fetcher      Fetcher
	connectivity Connectivity
	logger       *slog.Logger

	pageSize   int
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	loading     bool
	currentPage int
	hasMore     bool
	isOffline   bool
	retryCount  int
	accumulated []domain.Story
}

func New(fetcher Fetcher, connectivity Connectivity, cfg Config, logger *slog.Logger) *Paginator {
	return &Paginator{
		fetcher:      fetcher,
		connectivity: connectivity,
		logger:       logger.With("component", "paginate"),
		pageSize:     cfg.PageSize,
		maxRetries:   cfg.MaxRetries,
		baseDelay:    cfg.BaseDelay,
		sleep:        sleepCtx,
		currentPage:  1,
		hasMore:      true,
	}
}

// LoadInitial resets the view to page 1 and replaces the accumulated
// stories with the first page.
func (p *Paginator) LoadInitial(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	if p.loading {
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap, nil
	}
	p.loading = true
	p.currentPage = 1
	p.retryCount = 0
	p.accumulated = nil
	p.hasMore = true
	p.mu.Unlock()

	defer p.doneLoading()

	res, err := p.fetchWithRetry(ctx, 1)
	if err != nil {
		p.mu.Lock()
		// A failed initial load leaves nothing to page through.
		p.hasMore = false
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap, err
	}

	p.mu.Lock()
	p.accumulated = res.Stories
	p.hasMore = len(res.Stories) == p.pageSize
	p.isOffline = res.IsOffline
	snap := p.snapshotLocked()
	p.mu.Unlock()
	return snap, nil
}

// LoadMore appends the next page. It is a no-op while a fetch is in
// flight or when the feed is exhausted. A malformed page marks the
// feed exhausted instead of erroring, so a broken feed cannot cause a
// retry loop; a transient failure after all retries restores
// currentPage so the same page can be re-requested later.
func (p *Paginator) LoadMore(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	if p.loading || !p.hasMore {
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap, nil
	}
	p.loading = true
	p.retryCount = 0
	p.currentPage++
	page := p.currentPage
	p.mu.Unlock()

	defer p.doneLoading()

	res, err := p.fetchWithRetry(ctx, page)

	p.mu.Lock()
	defer p.mu.Unlock()

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		p.hasMore = false
		return p.snapshotLocked(), nil
	}
	if err != nil {
		// The failed page was not consumed.
		p.currentPage--
		return p.snapshotLocked(), err
	}

	p.accumulated = append(p.accumulated, res.Stories...)
	p.hasMore = len(res.Stories) == p.pageSize
	p.isOffline = res.IsOffline
	return p.snapshotLocked(), nil
}

// Snapshot returns the current state without fetching.
func (p *Paginator) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Paginator) snapshotLocked() Snapshot {
	items := make([]domain.Story, len(p.accumulated))
	copy(items, p.accumulated)
	return Snapshot{
		Items:     items,
		Page:      p.currentPage,
		HasMore:   p.hasMore,
		IsOffline: p.isOffline,
	}
}

func (p *Paginator) doneLoading() {
	p.mu.Lock()
	p.loading = false
	p.mu.Unlock()
}

// fetchWithRetry retries transient failures with a linearly growing
// delay, only while connectivity is believed available. Malformed
// responses are not transient and return immediately.
func (p *Paginator) fetchWithRetry(ctx context.Context, page int) (*domain.ListResult, error) {
	for {
		res, err := p.fetcher.FetchPage(ctx, page, p.pageSize)
		if err == nil {
			return res, nil
		}

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			return nil, err
		}

		p.mu.Lock()
		p.retryCount++
		attempt := p.retryCount
		p.mu.Unlock()

		if attempt > p.maxRetries || !p.connectivity.Online() {
			return nil, err
		}

		delay := p.baseDelay * time.Duration(attempt)
		p.logger.Warn("page fetch failed, retrying",
			"page", page,
			"attempt", attempt,
			"backoff", delay,
			"error", err,
		)
		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
