package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"storyshare/internal/domain"
)

// CacheStore persists HTTP responses for the request-routing cache
// layer. Entries are grouped into named caches so whole generations
// can be dropped at once.
type CacheStore struct {
	db *sqlx.DB
}

func NewCacheStore(db *sqlx.DB) *CacheStore {
	return &CacheStore{db: db}
}

type cacheRow struct {
	CacheName   string    `db:"cache_name"`
	URL         string    `db:"url"`
	Status      int       `db:"status"`
	HeadersJSON []byte    `db:"headers_json"`
	Body        []byte    `db:"body"`
	FetchedAt   time.Time `db:"fetched_at"`
}

// Get returns the cached entry, or nil on a miss.
func (s *CacheStore) Get(ctx context.Context, cacheName, url string) (*domain.CacheEntry, error) {
	query := `
		SELECT cache_name, url, status, headers_json, body, fetched_at
		FROM cache_entries
		WHERE cache_name = ? AND url = ?`

	var row cacheRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, cacheName, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get cache entry", Err: err}
	}

	entry := &domain.CacheEntry{
		CacheName: row.CacheName,
		URL:       row.URL,
		Status:    row.Status,
		Body:      row.Body,
		FetchedAt: row.FetchedAt,
	}
	if err := json.Unmarshal(row.HeadersJSON, &entry.Header); err != nil {
		return nil, &domain.StorageError{Op: "get cache entry", Err: err}
	}
	return entry, nil
}

// Put upserts an entry under its cache name and URL.
func (s *CacheStore) Put(ctx context.Context, entry *domain.CacheEntry) error {
	headers, err := json.Marshal(entry.Header)
	if err != nil {
		return &domain.StorageError{Op: "put cache entry", Err: err}
	}

	query := `
		INSERT INTO cache_entries (cache_name, url, status, headers_json, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cache_name, url) DO UPDATE SET
			status = excluded.status,
			headers_json = excluded.headers_json,
			body = excluded.body,
			fetched_at = excluded.fetched_at`

	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		entry.CacheName, entry.URL, entry.Status, headers, entry.Body, entry.FetchedAt.UTC(),
	); err != nil {
		return &domain.StorageError{Op: "put cache entry", Err: err}
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, cacheName, url string) error {
	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM cache_entries WHERE cache_name = ? AND url = ?", cacheName, url,
	); err != nil {
		return &domain.StorageError{Op: "delete cache entry", Err: err}
	}
	return nil
}

// Names lists every cache name currently present.
func (s *CacheStore) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &names,
		"SELECT DISTINCT cache_name FROM cache_entries ORDER BY cache_name",
	); err != nil {
		return nil, &domain.StorageError{Op: "list cache names", Err: err}
	}
	return names, nil
}

// DeleteCache drops every entry belonging to the named cache.
func (s *CacheStore) DeleteCache(ctx context.Context, cacheName string) error {
	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM cache_entries WHERE cache_name = ?", cacheName,
	); err != nil {
		return &domain.StorageError{Op: "delete cache", Err: err}
	}
	return nil
}

// EvictExpired removes entries fetched before cutoff.
func (s *CacheStore) EvictExpired(ctx context.Context, cacheName string, cutoff time.Time) (int64, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM cache_entries WHERE cache_name = ? AND fetched_at < ?",
		cacheName, cutoff.UTC(),
	)
	if err != nil {
		return 0, &domain.StorageError{Op: "evict cache entries", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.StorageError{Op: "evict cache entries", Err: err}
	}
	return n, nil
}

// EvictOverLimit keeps the max newest entries of a cache and drops the
// rest.
func (s *CacheStore) EvictOverLimit(ctx context.Context, cacheName string, max int) (int64, error) {
	query := `
		DELETE FROM cache_entries
		WHERE cache_name = ? AND url NOT IN (
			SELECT url FROM cache_entries
			WHERE cache_name = ?
			ORDER BY fetched_at DESC
			LIMIT ?
		)`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, cacheName, cacheName, max)
	if err != nil {
		return 0, &domain.StorageError{Op: "evict cache entries", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.StorageError{Op: "evict cache entries", Err: err}
	}
	return n, nil
}
