package httpcache

import (
	"net/http"
	"path"
	"strings"
	"time"
)

// RulesConfig describes the standard routing table.
type RulesConfig struct {
	APIOrigin       string
	Prefix          string
	APIMaxAge       time.Duration
	APIMaxEntries   int
	ImageMaxAge     time.Duration
	ImageMaxEntries int
}

// DefaultRules builds the routing table: API responses are
// network-first with expiry, images are cache-first, full-document
// navigations are network-first with the offline-document fallback.
func DefaultRules(cfg RulesConfig) []Rule {
	matchAPI := MatchOrigin(cfg.APIOrigin)
	return []Rule{
		{
			// Photos live on the API origin too; those belong to the
			// image cache, not the data cache.
			Match: func(req *http.Request) bool {
				return matchAPI(req) && !MatchImage(req)
			},
			Strategy: NetworkFirst,
			Options: Options{
				CacheName:         cfg.Prefix + "-stories-api-cache",
				MaxAge:            cfg.APIMaxAge,
				MaxEntries:        cfg.APIMaxEntries,
				CacheableStatuses: []int{0, http.StatusOK},
			},
		},
		{
			Match:    MatchImage,
			Strategy: CacheFirst,
			Options: Options{
				CacheName:  cfg.Prefix + "-images-cache",
				MaxAge:     cfg.ImageMaxAge,
				MaxEntries: cfg.ImageMaxEntries,
			},
		},
		{
			Match:    MatchNavigation,
			Strategy: NetworkFirstWithFallback,
			Options: Options{
				CacheName: cfg.Prefix + "-pages-cache",
			},
		},
	}
}

// MatchOrigin matches requests whose scheme and host equal the given
// origin, e.g. "https://story-api.dicoding.dev".
func MatchOrigin(origin string) func(*http.Request) bool {
	return func(req *http.Request) bool {
		return req.URL.Scheme+"://"+req.URL.Host == origin
	}
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".ico":  true,
}

// MatchImage matches image resource requests, by fetch metadata when
// present and by file extension otherwise.
func MatchImage(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Dest") == "image" {
		return true
	}
	if strings.HasPrefix(req.Header.Get("Accept"), "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(req.URL.Path))]
}

// MatchNavigation matches full-document navigations: GET requests
// asking for HTML.
func MatchNavigation(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}
