package httpcache

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storyshare/internal/domain"
)

// Store is the persistence behind the named response caches.
type Store interface {
	Get(ctx context.Context, cacheName, url string) (*domain.CacheEntry, error)
	Put(ctx context.Context, entry *domain.CacheEntry) error
	Delete(ctx context.Context, cacheName, url string) error
	Names(ctx context.Context) ([]string, error)
	DeleteCache(ctx context.Context, cacheName string) error
	EvictExpired(ctx context.Context, cacheName string, cutoff time.Time) (int64, error)
	EvictOverLimit(ctx context.Context, cacheName string, max int) (int64, error)
}

type Strategy int

const (
	// NetworkFirst tries the network and falls back to the cache,
	// refreshing the cache on success.
	NetworkFirst Strategy = iota
	// CacheFirst serves from cache when present, fetching and
	// populating otherwise.
	CacheFirst
	// NetworkFirstWithFallback behaves like NetworkFirst but serves
	// the precached offline document on total failure.
	NetworkFirstWithFallback
)

// Options tune one cache rule.
type Options struct {
	CacheName string
	// MaxAge expires entries; zero means no age limit.
	MaxAge time.Duration
	// MaxEntries bounds the cache; zero means unbounded.
	MaxEntries int
	// CacheableStatuses limits which responses get cached. Empty
	// means 200 only.
	CacheableStatuses []int
}

// Rule pairs a request predicate with a caching strategy.
type Rule struct {
	Match    func(*http.Request) bool
	Strategy Strategy
	Options  Options
}

// Transport intercepts every outgoing request of the shared HTTP
// client and routes it through the first matching rule. Requests
// matching no rule pass straight through.
type Transport struct {
	base       http.RoundTripper
	store      Store
	rules      []Rule
	prefix     string
	offlineURL string
	logger     *slog.Logger
	now        func() time.Time
}

func NewTransport(base http.RoundTripper, store Store, rules []Rule, prefix, offlineURL string, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:       base,
		store:      store,
		rules:      rules,
		prefix:     prefix,
		offlineURL: offlineURL,
		logger:     logger.With("component", "httpcache"),
		now:        time.Now,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	for i := range t.rules {
		if !t.rules[i].Match(req) {
			continue
		}
		switch t.rules[i].Strategy {
		case CacheFirst:
			return t.cacheFirst(req, t.rules[i].Options)
		case NetworkFirstWithFallback:
			return t.networkFirst(req, t.rules[i].Options, true)
		default:
			return t.networkFirst(req, t.rules[i].Options, false)
		}
	}
	return t.base.RoundTrip(req)
}

func (t *Transport) networkFirst(req *http.Request, opts Options, offlineFallback bool) (*http.Response, error) {
	resp, err := t.fetch(req)
	if err == nil {
		if !cacheable(resp.StatusCode, opts) {
			return resp, nil
		}
		return t.cacheAndServe(req, resp, opts)
	}

	if entry := t.freshEntry(req.Context(), opts, req.URL.String()); entry != nil {
		return entryResponse(entry, req), nil
	}

	if offlineFallback {
		if doc := t.freshEntry(req.Context(), Options{CacheName: t.PrecacheName()}, t.offlineURL); doc != nil {
			t.logger.Warn("navigation failed, serving offline document", "url", req.URL.String())
			return entryResponse(doc, req), nil
		}
	}
	return nil, err
}

func (t *Transport) cacheFirst(req *http.Request, opts Options) (*http.Response, error) {
	if entry := t.freshEntry(req.Context(), opts, req.URL.String()); entry != nil {
		return entryResponse(entry, req), nil
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !cacheable(resp.StatusCode, opts) {
		return resp, nil
	}
	return t.cacheAndServe(req, resp, opts)
}

// fetch prefers a navigation-preload response handed in through the
// request context over a fresh network round trip.
func (t *Transport) fetch(req *http.Request) (*http.Response, error) {
	if resp := preloadFrom(req.Context()); resp != nil {
		return resp, nil
	}
	return t.base.RoundTrip(req)
}

// cacheAndServe persists the response body and hands back an
// equivalent response built from the stored entry.
func (t *Transport) cacheAndServe(req *http.Request, resp *http.Response, opts Options) (*http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &domain.NetworkError{Status: resp.StatusCode, Err: err}
	}

	entry := &domain.CacheEntry{
		CacheName: opts.CacheName,
		URL:       req.URL.String(),
		Status:    resp.StatusCode,
		Header:    resp.Header.Clone(),
		Body:      body,
		FetchedAt: t.now(),
	}

	ctx := req.Context()
	if err := t.store.Put(ctx, entry); err != nil {
		t.logger.Warn("cache fill failed", "cache", opts.CacheName, "error", err)
	} else {
		t.evict(ctx, opts)
	}
	return entryResponse(entry, req), nil
}

func (t *Transport) evict(ctx context.Context, opts Options) {
	if opts.MaxAge > 0 {
		if _, err := t.store.EvictExpired(ctx, opts.CacheName, t.now().Add(-opts.MaxAge)); err != nil {
			t.logger.Warn("cache eviction failed", "cache", opts.CacheName, "error", err)
		}
	}
	if opts.MaxEntries > 0 {
		if _, err := t.store.EvictOverLimit(ctx, opts.CacheName, opts.MaxEntries); err != nil {
			t.logger.Warn("cache eviction failed", "cache", opts.CacheName, "error", err)
		}
	}
}

// freshEntry returns a usable cached entry, deleting and skipping
// entries past their age limit.
func (t *Transport) freshEntry(ctx context.Context, opts Options, url string) *domain.CacheEntry {
	entry, err := t.store.Get(ctx, opts.CacheName, url)
	if err != nil {
		t.logger.Warn("cache read failed", "cache", opts.CacheName, "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}
	if opts.MaxAge > 0 && t.now().Sub(entry.FetchedAt) > opts.MaxAge {
		if err := t.store.Delete(ctx, opts.CacheName, url); err != nil {
			t.logger.Warn("expired entry delete failed", "cache", opts.CacheName, "error", err)
		}
		return nil
	}
	return entry
}

// Activate performs generational cleanup: every cache whose name does
// not carry the current prefix belongs to an older deployment and is
// dropped.
func (t *Transport) Activate(ctx context.Context) error {
	names, err := t.store.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if strings.HasPrefix(name, t.prefix+"-") {
			continue
		}
		t.logger.Info("deleting stale cache", "cache", name)
		if err := t.store.DeleteCache(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// PrecacheName is the cache holding statically precached documents.
func (t *Transport) PrecacheName() string {
	return t.prefix + "-precache"
}

// PrecacheOffline stores the offline fallback document.
func (t *Transport) PrecacheOffline(ctx context.Context, body []byte) error {
	return t.store.Put(ctx, &domain.CacheEntry{
		CacheName: t.PrecacheName(),
		URL:       t.offlineURL,
		Status:    http.StatusOK,
		Header:    map[string][]string{"Content-Type": {"text/html; charset=utf-8"}},
		Body:      body,
		FetchedAt: t.now(),
	})
}

func cacheable(status int, opts Options) bool {
	if len(opts.CacheableStatuses) == 0 {
		return status == http.StatusOK
	}
	for _, s := range opts.CacheableStatuses {
		if status == s {
			return true
		}
	}
	return false
}

func entryResponse(entry *domain.CacheEntry, req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    entry.Status,
		Status:        http.StatusText(entry.Status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header(entry.Header).Clone(),
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}

type preloadKey struct{}

// WithPreload attaches a speculatively fetched response to the
// context. NetworkFirst strategies prefer it over a fresh fetch.
func WithPreload(ctx context.Context, resp *http.Response) context.Context {
	return context.WithValue(ctx, preloadKey{}, resp)
}

func preloadFrom(ctx context.Context) *http.Response {
	resp, _ := ctx.Value(preloadKey{}).(*http.Response)
	return resp
}
