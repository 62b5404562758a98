package paginate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyshare/internal/domain"
)

type fetcherFunc func(ctx context.Context, page, size int) (*domain.ListResult, error)

func (f fetcherFunc) FetchPage(ctx context.Context, page, size int) (*domain.ListResult, error) {
	return f(ctx, page, size)
}

type connectivityStub bool

func (c connectivityStub) Online() bool { return bool(c) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storiesPage(prefix string, n int) []domain.Story {
	out := make([]domain.Story, n)
	for i := range out {
		out[i] = domain.Story{ID: prefix + string(rune('a'+i))}
	}
	return out
}

func newTestPaginator(fetch fetcherFunc, online bool) *Paginator {
	p := New(fetch, connectivityStub(online), Config{
		PageSize:   3,
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}, testLogger())
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func TestLoadInitialFullPage(t *testing.T) {
	p := newTestPaginator(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		require.Equal(t, 1, page)
		require.Equal(t, 3, size)
		return &domain.ListResult{Stories: storiesPage("p1", 3)}, nil
	}, true)

	snap, err := p.LoadInitial(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Items, 3)
	assert.Equal(t, 1, snap.Page)
	assert.True(t, snap.HasMore)
	assert.False(t, snap.IsOffline)
}

func TestLoadInitialShortPageExhaustsFeed(t *testing.T) {
	p := newTestPaginator(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		return &domain.ListResult{Stories: storiesPage("p1", 2)}, nil
	}, true)

	snap, err := p.LoadInitial(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Items, 2)
	assert.False(t, snap.HasMore)
}

func TestLoadInitialResetsAccumulatedState(t *testing.T) {
	pages := map[int][]domain.Story{
		1: storiesPage("p1", 3),
		2: storiesPage("p2", 3),
	}
	p := newTestPaginator(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		return &domain.ListResult{Stories: pages[page]}, nil
	}, true)

	ctx := context.Background()
	_, err := p.LoadInitial(ctx)
	require.NoError(t, err)
	_, err = p.LoadMore(ctx)
	require.NoError(t, err)
	require.Len(t, p.Snapshot().Items, 6)

	snap, err := p.LoadInitial(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 3)
	assert.Equal(t, 1, snap.Page)
}

func TestLoadMoreAppends(t *testing.T) {
	p := newTestPaginator(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		switch page {
		case 1:
			return &domain.ListResult{Stories: storiesPage("p1", 3)}, nil
		case 2:
			return &domain.ListResult{Stories: storiesPage("p2", 3)}, nil
		default:
			return &domain.ListResult{Stories: []domain.Story{}}, nil
		}
	}, true)

	ctx := context.Background()
	_, err := p.LoadInitial(ctx)
	require.NoError(t, err)

	snap, err := p.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 6)
	assert.Equal(t, 2, snap.Page)
	assert.True(t, snap.HasMore)

	snap, err = p.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 6)
	assert.False(t, snap.HasMore)
}

func TestLoadMoreNoOpWhenExhausted(t *testing.T) {
	var calls int
	p := newTestPaginator(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		calls++
		return &domain.ListResult{Stories: storiesPage("p1", 1)}, nil
	}, true)

	ctx := context.Background()
	_, err := p.LoadInitial(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	snap, err := p.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, snap.Items, 1)
}

func TestLoadMoreMalformedPageExhaustsSilently(t *testing.T) {
	p := newTestPaginator(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		if page == 1 {
			return &domain.ListResult{Stories: storiesPage("p1", 3)}, nil
		}
		return nil, &domain.ValidationError{Reason: "missing listStory field"}
	}, true)

	ctx := context.Background()
	_, err := p.LoadInitial(ctx)
	require.NoError(t, err)

	snap, err := p.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, snap.HasMore)
	assert.Len(t, snap.Items, 3)
}

func TestRetryExhaustionRestoresPage(t *testing.T) {
	transient := &domain.NetworkError{Status: 503, Message: "unavailable"}
	var delays []time.Duration
	var calls int

	p := New(fetcherFunc(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		if page == 1 {
			return &domain.ListResult{Stories: storiesPage("p1", 3)}, nil
		}
		calls++
		return nil, transient
	}), connectivityStub(true), Config{PageSize: 3, MaxRetries: 3, BaseDelay: time.Second}, testLogger())
	p.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	ctx := context.Background()
	_, err := p.LoadInitial(ctx)
	require.NoError(t, err)

	snap, err := p.LoadMore(ctx)
	require.ErrorIs(t, err, transient)

	// One initial attempt plus three retries, delays growing linearly.
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, delays)

	assert.Equal(t, 1, snap.Page)
	assert.True(t, snap.HasMore)
	assert.Len(t, snap.Items, 3)

	// The same page can be requested again after the failure.
	recovered := false
	p.fetcher = fetcherFunc(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		require.Equal(t, 2, page)
		recovered = true
		return &domain.ListResult{Stories: storiesPage("p2", 3)}, nil
	})
	snap, err = p.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.Equal(t, 2, snap.Page)
	assert.Len(t, snap.Items, 6)
}

func TestRetrySkippedWhileOffline(t *testing.T) {
	transient := &domain.NetworkError{Err: errors.New("dial tcp: network unreachable")}
	var calls int

	p := newTestPaginator(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		calls++
		return nil, transient
	}, false)

	_, err := p.LoadInitial(context.Background())
	require.ErrorIs(t, err, transient)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	transient := &domain.NetworkError{Status: 500}

	p := New(fetcherFunc(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		return nil, transient
	}), connectivityStub(true), Config{PageSize: 3, MaxRetries: 3, BaseDelay: time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.LoadInitial(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentLoadIsNoOp(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int

	p := newTestPaginator(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		calls++
		if calls == 1 {
			close(started)
			<-release
		}
		return &domain.ListResult{Stories: storiesPage("p1", 3)}, nil
	}, true)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = p.LoadInitial(context.Background())
	}()

	<-started
	snap, err := p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Items)

	snap, err = p.LoadInitial(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Items)

	close(release)
	wg.Wait()

	assert.Equal(t, 1, calls)
	assert.Len(t, p.Snapshot().Items, 3)
}

func TestLoadInitialFailureLeavesNothingToPage(t *testing.T) {
	transient := &domain.NetworkError{Status: 500}
	p := newTestPaginator(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		return nil, transient
	}, true)

	snap, err := p.LoadInitial(context.Background())
	require.ErrorIs(t, err, transient)
	assert.False(t, snap.HasMore)
	assert.Empty(t, snap.Items)

	var calls int
	p.fetcher = fetcherFunc(func(ctx context.Context, page, size int) (*domain.ListResult, error) {
		calls++
		return &domain.ListResult{Stories: nil}, nil
	})
	_, err = p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Zero(t, calls)
}
