package domain

import "time"

// CacheEntry is a stored HTTP response belonging to a named cache.
type CacheEntry struct {
	CacheName string
	URL       string
	Status    int
	Header    map[string][]string
	Body      []byte
	FetchedAt time.Time
}
