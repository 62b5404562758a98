package httpcache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyshare/internal/domain"
)

type memStore struct {
	entries map[string]map[string]*domain.CacheEntry
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]map[string]*domain.CacheEntry{}}
}

func (m *memStore) Get(ctx context.Context, cacheName, url string) (*domain.CacheEntry, error) {
	entry, ok := m.entries[cacheName][url]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (m *memStore) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if m.entries[entry.CacheName] == nil {
		m.entries[entry.CacheName] = map[string]*domain.CacheEntry{}
	}
	copied := *entry
	m.entries[entry.CacheName][entry.URL] = &copied
	return nil
}

func (m *memStore) Delete(ctx context.Context, cacheName, url string) error {
	delete(m.entries[cacheName], url)
	return nil
}

func (m *memStore) Names(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memStore) DeleteCache(ctx context.Context, cacheName string) error {
	delete(m.entries, cacheName)
	return nil
}

func (m *memStore) EvictExpired(ctx context.Context, cacheName string, cutoff time.Time) (int64, error) {
	var n int64
	for url, entry := range m.entries[cacheName] {
		if entry.FetchedAt.Before(cutoff) {
			delete(m.entries[cacheName], url)
			n++
		}
	}
	return n, nil
}

func (m *memStore) EvictOverLimit(ctx context.Context, cacheName string, max int) (int64, error) {
	urls := m.entries[cacheName]
	if len(urls) <= max {
		return 0, nil
	}
	type aged struct {
		url string
		at  time.Time
	}
	all := make([]aged, 0, len(urls))
	for url, entry := range urls {
		all = append(all, aged{url, entry.FetchedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	var n int64
	for _, a := range all[:len(all)-max] {
		delete(urls, a.url)
		n++
	}
	return n, nil
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse(req *http.Request, body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Request:    req,
	}
}

func apiRules() []Rule {
	return DefaultRules(RulesConfig{
		APIOrigin:       "https://story-api.dicoding.dev",
		Prefix:          "storyshare-v1",
		APIMaxAge:       24 * time.Hour,
		APIMaxEntries:   50,
		ImageMaxAge:     30 * 24 * time.Hour,
		ImageMaxEntries: 100,
	})
}

func newTestTransport(store Store, base http.RoundTripper) *Transport {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTransport(base, store, apiRules(), "storyshare-v1", "/offline.html", logger)
}

func apiRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://story-api.dicoding.dev/v1/stories?page=1&size=10", nil)
	require.NoError(t, err)
	return req
}

func imageRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://story-api.dicoding.dev/images/photo-1.jpg", nil)
	require.NoError(t, err)
	req.Header.Set("Sec-Fetch-Dest", "image")
	return req
}

func navigationRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://storyshare.example/index.html", nil)
	require.NoError(t, err)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Accept", "text/html")
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestNetworkFirstFillsCache(t *testing.T) {
	store := newMemStore()
	tr := newTestTransport(store, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse(req, `{"error":false}`), nil
	}))

	resp, err := tr.RoundTrip(apiRequest(t))
	require.NoError(t, err)
	assert.Equal(t, `{"error":false}`, readBody(t, resp))

	entry, err := store.Get(context.Background(), "storyshare-v1-stories-api-cache",
		"https://story-api.dicoding.dev/v1/stories?page=1&size=10")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte(`{"error":false}`), entry.Body)
	assert.Equal(t, "application/json", entry.Header["Content-Type"][0])
}

func TestNetworkFirstServesCacheOnFailure(t *testing.T) {
	store := newMemStore()
	online := true
	tr := newTestTransport(store, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if !online {
			return nil, errors.New("dial tcp: network unreachable")
		}
		return okResponse(req, `{"error":false}`), nil
	}))

	resp, err := tr.RoundTrip(apiRequest(t))
	require.NoError(t, err)
	_ = readBody(t, resp)

	online = false
	resp, err = tr.RoundTrip(apiRequest(t))
	require.NoError(t, err)
	assert.Equal(t, `{"error":false}`, readBody(t, resp))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNetworkFirstExpiredEntryNotServed(t *testing.T) {
	store := newMemStore()
	netErr := errors.New("dial tcp: network unreachable")
	tr := newTestTransport(store, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return nil, netErr
	}))

	require.NoError(t, store.Put(context.Background(), &domain.CacheEntry{
		CacheName: "storyshare-v1-stories-api-cache",
		URL:       "https://story-api.dicoding.dev/v1/stories?page=1&size=10",
		Status:    200,
		Header:    map[string][]string{},
		Body:      []byte("stale"),
		FetchedAt: time.Now().Add(-25 * time.Hour),
	}))

	_, err := tr.RoundTrip(apiRequest(t))
	require.ErrorIs(t, err, netErr)

	// The expired entry was dropped on the failed lookup.
	entry, err := store.Get(context.Background(), "storyshare-v1-stories-api-cache",
		"https://story-api.dicoding.dev/v1/stories?page=1&size=10")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestNetworkFirstUncacheableStatusPassesThrough(t *testing.T) {
	store := newMemStore()
	tr := newTestTransport(store, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     http.Header{},
			Body:       io.NopCloser(bytes.NewReader([]byte("not found"))),
			Request:    req,
		}, nil
	}))

	resp, err := tr.RoundTrip(apiRequest(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = readBody(t, resp)

	assert.Empty(t, store.entries["storyshare-v1-stories-api-cache"])
}

func TestCacheFirstSkipsNetworkOnHit(t *testing.T) {
	store := newMemStore()
	var hits int
	tr := newTestTransport(store, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		return okResponse(req, "image-bytes"), nil
	}))

	resp, err := tr.RoundTrip(imageRequest(t))
	require.NoError(t, err)
	_ = readBody(t, resp)
	require.Equal(t, 1, hits)

	resp, err = tr.RoundTrip(imageRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", readBody(t, resp))
	assert.Equal(t, 1, hits)
}

func TestNavigationFallsBackToOfflineDocument(t *testing.T) {
	store := newMemStore()
	tr := newTestTransport(store, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: network unreachable")
	}))

	offline := []byte("<html><body>You are offline</body></html>")
	require.NoError(t, tr.PrecacheOffline(context.Background(), offline))

	resp, err := tr.RoundTrip(navigationRequest(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(offline), readBody(t, resp))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestNavigationWithoutPrecacheErrors(t *testing.T) {
	store := newMemStore()
	netErr := errors.New("dial tcp: network unreachable")
	tr := newTestTransport(store, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return nil, netErr
	}))

	_, err := tr.RoundTrip(navigationRequest(t))
	require.ErrorIs(t, err, netErr)
}

func TestUnmatchedRequestPassesThrough(t *testing.T) {
	store := newMemStore()
	var hits int
	tr := newTestTransport(store, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		return okResponse(req, "pong"), nil
	}))

	req, err := http.NewRequest(http.MethodPost, "https://other.example/api/ping", nil)
	require.NoError(t, err)

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	_ = readBody(t, resp)
	assert.Equal(t, 1, hits)
	assert.Empty(t, store.entries)
}

func TestActivateDropsForeignCaches(t *testing.T) {
	store := newMemStore()
	tr := newTestTransport(store, nil)
	ctx := context.Background()

	put := func(name string) {
		require.NoError(t, store.Put(ctx, &domain.CacheEntry{
			CacheName: name,
			URL:       "https://x",
			Status:    200,
			Header:    map[string][]string{},
			Body:      []byte("x"),
			FetchedAt: time.Now(),
		}))
	}
	put("storyshare-v1-stories-api-cache")
	put("storyshare-v1-precache")
	put("storyshare-v0-stories-api-cache")
	put("unrelated-cache")

	require.NoError(t, tr.Activate(ctx))

	names, err := store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"storyshare-v1-precache", "storyshare-v1-stories-api-cache"}, names)
}

func TestPreloadedResponsePreferred(t *testing.T) {
	store := newMemStore()
	var hits int
	tr := newTestTransport(store, roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		return okResponse(req, "from-network"), nil
	}))

	req := apiRequest(t)
	preloaded := okResponse(req, "from-preload")
	req = req.WithContext(WithPreload(req.Context(), preloaded))

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "from-preload", readBody(t, resp))
	assert.Zero(t, hits)
}

func TestEvictionBoundsCacheSize(t *testing.T) {
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := []Rule{{
		Match:    MatchOrigin("https://story-api.dicoding.dev"),
		Strategy: NetworkFirst,
		Options: Options{
			CacheName:  "storyshare-v1-stories-api-cache",
			MaxEntries: 2,
		},
	}}
	tr := NewTransport(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse(req, "x"), nil
	}), store, rules, "storyshare-v1", "/offline.html", logger)

	for _, page := range []string{"1", "2", "3"} {
		req, err := http.NewRequest(http.MethodGet, "https://story-api.dicoding.dev/v1/stories?page="+page, nil)
		require.NoError(t, err)
		resp, err := tr.RoundTrip(req)
		require.NoError(t, err)
		_ = readBody(t, resp)
	}

	assert.Len(t, store.entries["storyshare-v1-stories-api-cache"], 2)
}

func TestMatchImage(t *testing.T) {
	byExt, _ := http.NewRequest(http.MethodGet, "https://x/photo.PNG", nil)
	assert.True(t, MatchImage(byExt))

	byAccept, _ := http.NewRequest(http.MethodGet, "https://x/resource", nil)
	byAccept.Header.Set("Accept", "image/webp")
	assert.True(t, MatchImage(byAccept))

	plain, _ := http.NewRequest(http.MethodGet, "https://x/data.json", nil)
	assert.False(t, MatchImage(plain))
}

func TestMatchNavigation(t *testing.T) {
	nav, _ := http.NewRequest(http.MethodGet, "https://x/", nil)
	nav.Header.Set("Accept", "text/html,application/xhtml+xml")
	assert.True(t, MatchNavigation(nav))

	post, _ := http.NewRequest(http.MethodPost, "https://x/", nil)
	post.Header.Set("Accept", "text/html")
	assert.False(t, MatchNavigation(post))

	api, _ := http.NewRequest(http.MethodGet, "https://x/api", nil)
	api.Header.Set("Accept", "application/json")
	assert.False(t, MatchNavigation(api))
}
